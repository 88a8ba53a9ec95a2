// Package portablefs is a virtual file-descriptor layer for an I/O server.
//
// Clients name open files by small integer descriptors. FileSystem translates
// them into native handles, enforces POSIX-like open/close semantics and
// reports every failure with a stable token from the sys package, ex. "ENOENT",
// instead of host-specific diagnostic text.
//
// Descriptors 0, 1 and 2 are bound to standard input, output and error when the
// FileSystem is created. Open allocates descriptors from 3 upwards and never
// reuses one, even after Close.
package portablefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cosmossdk.io/log"

	internalsys "github.com/kframework/portablefs/internal/sys"
	"github.com/kframework/portablefs/internal/sysfs"
	"github.com/kframework/portablefs/sys"
)

// Modes accepted by FileSystem.Open.
const (
	// ModeRead opens an existing file for reading.
	ModeRead = "r"
	// ModeWrite is write-only, which is rejected with
	// sys.ErrUnsupportedOperation.
	ModeWrite = "w"
	// ModeReadWrite opens a file for reading and writing, creating it if
	// missing. Its parent directory must exist.
	ModeReadWrite = "rw"
)

// FileSystem is the descriptor table of one server process.
//
// All methods are safe for concurrent use. Each returned error is a sys.Errno
// or, for a host diagnostic outside the known catalog, a
// *sys.UnrecognizedOSError.
type FileSystem struct {
	fsc    *internalsys.FSContext
	fs     sysfs.FS
	logger log.Logger
}

// New creates a FileSystem with the standard streams bound to descriptors 0, 1
// and 2.
func New(config FSConfig) (*FileSystem, error) {
	c, ok := config.(*fsConfig)
	if !ok || c == nil {
		c = NewFSConfig().(*fsConfig)
	}

	var fs sysfs.FS
	switch {
	case c.fs != nil:
		fs = sysfs.Adapt(c.fs)
	case c.rootDir != "":
		dir, err := hostDir("root dir", c.rootDir)
		if err != nil {
			return nil, err
		}
		fs = sysfs.NewRootFS(dir)
	default:
		workDir := c.workDir
		if workDir == "" {
			workDir = "."
		}
		dir, err := hostDir("work dir", workDir)
		if err != nil {
			return nil, err
		}
		fs = sysfs.NewDirFS(dir)
	}

	logger := c.logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger.Debug("file system ready", "fs", fs)

	return &FileSystem{
		fsc:    internalsys.NewFSContext(c.stdin, c.stdout, c.stderr),
		fs:     fs,
		logger: logger,
	}, nil
}

// hostDir returns the absolute form of dir, which must be an existing
// directory.
func hostDir(what, dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s %q: %w", what, dir, err)
	}
	if info, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%s: %w", what, err)
	} else if !info.IsDir() {
		return "", fmt.Errorf("%s %q is not a directory", what, abs)
	}
	return abs, nil
}

// Get returns the file bound to fd, or sys.EBADF if fd is not open.
func (s *FileSystem) Get(fd int32) (*sys.File, error) {
	f, ok := s.fsc.LookupFile(fd)
	if !ok {
		return nil, sys.EBADF
	}
	return f, nil
}

// Open opens path and returns its new descriptor.
//
// # Errors
//
//   - sys.ErrInvalidArgument: mode is not ModeRead, ModeWrite or
//     ModeReadWrite.
//   - sys.ErrUnsupportedOperation: mode is ModeWrite, regardless of path.
//   - otherwise, the host failure translated, ex. sys.ENOENT for a missing
//     file or sys.EISDIR for a directory.
func (s *FileSystem) Open(path, mode string) (int32, error) {
	var flag int
	switch mode {
	case ModeRead:
		flag = os.O_RDONLY
	case ModeWrite:
		return 0, sys.ErrUnsupportedOperation
	case ModeReadWrite:
		flag = os.O_RDWR | os.O_CREATE
	default:
		return 0, sys.ErrInvalidArgument
	}

	native, err := s.fs.OpenFile(path, flag)
	if err != nil {
		return 0, s.translate("open", err, "path", path, "mode", mode)
	}

	f := sys.NewSeekableReadWrite(sys.NewHandle(path), native)
	fd, err := s.fsc.InsertFile(f)
	if err != nil {
		_ = native.Close()
		return 0, err
	}
	s.logger.Debug("opened file", "fd", fd, "path", path, "mode", mode)
	return fd, nil
}

// Close closes fd. The descriptor is released even if closing the native
// resource fails. A descriptor that is unknown or already closed returns
// sys.EBADF.
func (s *FileSystem) Close(fd int32) error {
	f, ok := s.fsc.DetachFile(fd)
	if !ok {
		return sys.EBADF
	}
	s.logger.Debug("closing file", "fd", fd, "path", f.Name())
	if err := f.Close(); err != nil {
		return s.translate("close", err, "fd", fd)
	}
	return nil
}

// Read reads up to len(buf) bytes from fd. See sys.File Read.
func (s *FileSystem) Read(fd int32, buf []byte) (int, error) {
	f, err := s.Get(fd)
	if err != nil {
		return 0, err
	}
	n, err := f.Read(buf)
	return n, s.translate("read", err, "fd", fd)
}

// Write writes buf to fd. See sys.File Write.
func (s *FileSystem) Write(fd int32, buf []byte) (int, error) {
	f, err := s.Get(fd)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(buf)
	return n, s.translate("write", err, "fd", fd)
}

// Seek moves the cursor of fd. See sys.File Seek.
func (s *FileSystem) Seek(fd int32, offset int64, whence int) (int64, error) {
	f, err := s.Get(fd)
	if err != nil {
		return 0, err
	}
	newOffset, err := f.Seek(offset, whence)
	return newOffset, s.translate("seek", err, "fd", fd)
}

// Len returns the count of open descriptors.
func (s *FileSystem) Len() int {
	return s.fsc.Len()
}

// Shutdown closes every open descriptor, including the standard streams.
// Descriptors are still never reused if the FileSystem is used afterwards.
func (s *FileSystem) Shutdown() error {
	return s.translate("shutdown", s.fsc.Close())
}

// translate routes err through sys.Translate and logs diagnostics that are
// not in the catalog, since those are defects that need investigating.
func (s *FileSystem) translate(op string, err error, keyVals ...any) error {
	err = sys.Translate(err)
	var unrecognized *sys.UnrecognizedOSError
	if errors.As(err, &unrecognized) {
		s.logger.Error("unrecognized OS error", append([]any{"op", op, "diagnostic", unrecognized.Message()}, keyVals...)...)
	}
	return err
}
