// Package sysfs acquires positionable native resources for paths.
//
// Host access goes through go-billy, so the same code serves the host
// filesystem (osfs) and in-memory filesystems (memfs) used in tests.
package sysfs

import (
	"github.com/go-git/go-billy/v5"
)

// FS opens paths as positionable, bidirectional native resources.
//
// # Errors
//
// Errors are native: they carry host diagnostic text and must be routed through
// sys.Translate before they leave the file system layer.
type FS interface {
	// OpenFile opens name with flag, one of os.O_RDONLY or os.O_RDWR,
	// optionally with os.O_CREATE. New files are created with mode 0o666
	// before umask.
	//
	// # Notes
	//
	//   - Relative names are resolved against the working directory of FS.
	//   - A directory is never opened: it fails with syscall.EISDIR.
	//   - os.O_CREATE never creates parent directories.
	OpenFile(name string, flag int) (billy.File, error)
}
