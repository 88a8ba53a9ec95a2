package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5"
)

const rootDir = string(filepath.Separator)

// Adapt adapts a billy.Filesystem to FS. Relative names are resolved against
// the root of the filesystem.
func Adapt(bfs billy.Filesystem) FS {
	return &billyFS{fs: bfs, workDir: rootDir}
}

type billyFS struct {
	fs      billy.Filesystem
	workDir string
}

// String implements fmt.Stringer. It names the filesystem behind any chroot
// helpers, ex. "*memfs.Memory(/)", and the directory relative names resolve
// against on the host.
func (b *billyFS) String() string {
	var inner billy.Basic = b.fs
	for {
		u, ok := inner.(interface{ Underlying() billy.Basic })
		if !ok {
			break
		}
		inner = u.Underlying()
	}
	return fmt.Sprintf("%T(%s)", inner, filepath.Join(b.fs.Root(), b.workDir))
}

// OpenFile implements FS.OpenFile
func (b *billyFS) OpenFile(name string, flag int) (billy.File, error) {
	if name == "" {
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.ENOENT}
	}
	// Clean drops a trailing separator, which only directories may carry.
	dirOnly := os.IsPathSeparator(name[len(name)-1])
	name = b.join(name)

	// Stat first: billy implementations either open directories (osfs) or
	// refuse them with their own text (memfs), and both create missing parents
	// on os.O_CREATE.
	info, err := b.fs.Stat(name)
	switch {
	case err == nil && info.IsDir():
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
	case err == nil && dirOnly:
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.ENOTDIR}
	case err == nil:
		flag &^= os.O_CREATE
	case errors.Is(err, fs.ErrNotExist) && dirOnly && flag&os.O_CREATE != 0:
		// A directory name cannot be created as a file.
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
	case errors.Is(err, fs.ErrNotExist):
		// memfs reports a file parent as missing.
		if perr := b.checkParent(name); perr != nil {
			return nil, perr
		}
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("billy: stat %q: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("billy: stat %q: %w", name, err)
	}

	f, err := b.fs.OpenFile(name, flag, 0o666)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", name, err)
	}
	return f, nil
}

// checkParent returns the error POSIX open(2) would for a missing or
// non-directory parent of name.
func (b *billyFS) checkParent(name string) error {
	parent := filepath.Dir(name)
	if parent == rootDir {
		return nil
	}
	info, err := b.fs.Stat(parent)
	if err != nil {
		return fmt.Errorf("billy: stat %q: %w", parent, err)
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "open", Path: name, Err: syscall.ENOTDIR}
	}
	return nil
}

func (b *billyFS) join(name string) string {
	if !filepath.IsAbs(name) {
		name = filepath.Join(b.workDir, name)
	}
	return filepath.Clean(name)
}
