package sysfs

import (
	"github.com/go-git/go-billy/v5/osfs"
)

// NewDirFS returns a FS over the host filesystem. Relative names are resolved
// against workDir, absolute names are used as-is.
func NewDirFS(workDir string) FS {
	return &billyFS{
		fs:      osfs.New(rootDir),
		workDir: workDir,
	}
}

// NewRootFS returns a FS confined to dir on the host: "/" names dir itself and
// relative names are resolved against it. Names cannot escape dir through "..".
func NewRootFS(dir string) FS {
	return &billyFS{
		fs:      osfs.New(dir),
		workDir: rootDir,
	}
}
