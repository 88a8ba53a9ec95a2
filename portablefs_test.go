package portablefs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kframework/portablefs/sys"
)

func newTestFileSystem(t *testing.T, config FSConfig) *FileSystem {
	fsys, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsys.Shutdown() })
	return fsys
}

func TestFileSystem_reservedDescriptors(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig())

	tests := []struct {
		fd         int32
		capability sys.Capability
	}{
		{fd: 0, capability: sys.Readable},
		{fd: 1, capability: sys.Writable},
		{fd: 2, capability: sys.Writable},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(fmt.Sprint(tc.fd), func(t *testing.T) {
			f, err := fsys.Get(tc.fd)
			require.NoError(t, err)
			require.Equal(t, tc.capability, f.Capability())
		})
	}
	require.Equal(t, 3, fsys.Len())
}

func TestFileSystem_Get_unknown(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig())

	for _, fd := range []int32{-1, 3, 999} {
		_, err := fsys.Get(fd)
		require.Equal(t, sys.EBADF, err, fd)
	}
}

func TestFileSystem_Open_mode(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))

	fsys := newTestFileSystem(t, NewFSConfig().WithWorkDir(dir))

	tests := []struct {
		name     string
		path     string
		mode     string
		expected sys.Errno
	}{
		{name: "w existing", path: existing, mode: ModeWrite, expected: sys.ErrUnsupportedOperation},
		{name: "w missing", path: "/nonexistent/path", mode: ModeWrite, expected: sys.ErrUnsupportedOperation},
		{name: "x", path: existing, mode: "x", expected: sys.ErrInvalidArgument},
		{name: "empty mode", path: existing, mode: "", expected: sys.ErrInvalidArgument},
		{name: "upper case", path: existing, mode: "R", expected: sys.ErrInvalidArgument},
		{name: "wr", path: existing, mode: "wr", expected: sys.ErrInvalidArgument},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := fsys.Open(tc.path, tc.mode)
			require.Equal(t, tc.expected, err)
			require.Equal(t, 3, fsys.Len())
		})
	}
}

func TestFileSystem_Open_errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("f"), 0o600))

	fsys := newTestFileSystem(t, NewFSConfig().WithWorkDir(dir))

	tests := []struct {
		name     string
		path     string
		mode     string
		expected sys.Errno
	}{
		{name: "nonexistent", path: "/nonexistent/path", mode: ModeRead, expected: sys.ENOENT},
		{name: "nonexistent parent rw", path: "/nonexistent/path", mode: ModeReadWrite, expected: sys.ENOENT},
		{name: "directory", path: dir, mode: ModeRead, expected: sys.EISDIR},
		{name: "relative directory", path: "sub", mode: ModeRead, expected: sys.EISDIR},
		{name: "directory rw", path: dir, mode: ModeReadWrite, expected: sys.EISDIR},
		{name: "file as directory", path: "f/", mode: ModeRead, expected: sys.ENOTDIR},
		{name: "file as directory rw", path: "f/", mode: ModeReadWrite, expected: sys.ENOTDIR},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := fsys.Open(tc.path, tc.mode)
			require.Equal(t, tc.expected, err)
		})
	}

	// Failed opens don't consume descriptors.
	fd, err := fsys.Open("created", ModeReadWrite)
	require.NoError(t, err)
	require.Equal(t, int32(3), fd)
}

func TestFileSystem_descriptorsAreMonotonic(t *testing.T) {
	dir := t.TempDir()
	p1, p2 := filepath.Join(dir, "p1"), filepath.Join(dir, "p2")
	require.NoError(t, os.WriteFile(p1, nil, 0o600))
	require.NoError(t, os.WriteFile(p2, nil, 0o600))

	fsys := newTestFileSystem(t, NewFSConfig())

	fd1, err := fsys.Open(p1, ModeRead)
	require.NoError(t, err)
	require.Equal(t, int32(3), fd1)

	require.NoError(t, fsys.Close(fd1))

	fd2, err := fsys.Open(p2, ModeRead)
	require.NoError(t, err)
	require.Equal(t, int32(4), fd2)

	// The same path opened again is a new file.
	fd3, err := fsys.Open(p2, ModeRead)
	require.NoError(t, err)
	require.Equal(t, int32(5), fd3)

	f2, err := fsys.Get(fd2)
	require.NoError(t, err)
	f3, err := fsys.Get(fd3)
	require.NoError(t, err)
	require.NotSame(t, f2.Handle(), f3.Handle())
}

func TestFileSystem_Close(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig().WithFS(memfs.New()))

	fd, err := fsys.Open("/file", ModeReadWrite)
	require.NoError(t, err)

	require.NoError(t, fsys.Close(fd))

	_, err = fsys.Get(fd)
	require.Equal(t, sys.EBADF, err)
	require.Equal(t, sys.EBADF, fsys.Close(fd))
	require.Equal(t, sys.EBADF, fsys.Close(999))

	_, err = fsys.Read(fd, make([]byte, 1))
	require.Equal(t, sys.EBADF, err)
	_, err = fsys.Write(fd, []byte("x"))
	require.Equal(t, sys.EBADF, err)
	_, err = fsys.Seek(fd, 0, io.SeekStart)
	require.Equal(t, sys.EBADF, err)
}

func TestFileSystem_Close_stdio(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig())

	require.NoError(t, fsys.Close(1))
	_, err := fsys.Get(1)
	require.Equal(t, sys.EBADF, err)

	// Closing is irreversible: nothing rebinds 1.
	fd, err := fsys.Open(filepath.Join(t.TempDir(), "f"), ModeReadWrite)
	require.NoError(t, err)
	require.Equal(t, int32(3), fd)
	_, err = fsys.Get(1)
	require.Equal(t, sys.EBADF, err)
}

func TestFileSystem_roundTrip(t *testing.T) {
	tests := []struct {
		name   string
		config FSConfig
		path   string
	}{
		{name: "host", config: NewFSConfig(), path: filepath.Join(t.TempDir(), "roundtrip")},
		{name: "memfs", config: NewFSConfig().WithFS(memfs.New()), path: "/roundtrip"},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			fsys := newTestFileSystem(t, tc.config)

			fd, err := fsys.Open(tc.path, ModeReadWrite)
			require.NoError(t, err)

			n, err := fsys.Write(fd, []byte("hello, client"))
			require.NoError(t, err)
			require.Equal(t, 13, n)

			off, err := fsys.Seek(fd, 0, io.SeekStart)
			require.NoError(t, err)
			require.Zero(t, off)

			buf := make([]byte, 32)
			n, err = fsys.Read(fd, buf)
			require.NoError(t, err)
			require.Equal(t, "hello, client", string(buf[:n]))

			_, err = fsys.Read(fd, buf)
			require.Equal(t, sys.EOF, err)

			// The same cursor is shared by reads and writes.
			_, err = fsys.Seek(fd, 7, io.SeekStart)
			require.NoError(t, err)
			_, err = fsys.Write(fd, []byte("server"))
			require.NoError(t, err)
			_, err = fsys.Seek(fd, 0, io.SeekStart)
			require.NoError(t, err)
			n, err = fsys.Read(fd, buf)
			require.NoError(t, err)
			require.Equal(t, "hello, server", string(buf[:n]))

			require.NoError(t, fsys.Close(fd))

			// Reopening read-only sees the content and cannot write.
			fd, err = fsys.Open(tc.path, ModeRead)
			require.NoError(t, err)
			n, err = fsys.Read(fd, buf)
			require.NoError(t, err)
			require.Equal(t, "hello, server", string(buf[:n]))
		})
	}
}

func TestFileSystem_Open_readOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.WriteFile(path, []byte("ro"), 0o600))
	fsys := newTestFileSystem(t, NewFSConfig())

	fd, err := fsys.Open(path, ModeRead)
	require.NoError(t, err)

	f, err := fsys.Get(fd)
	require.NoError(t, err)
	require.Equal(t, sys.SeekableReadWrite, f.Capability())

	_, err = fsys.Write(fd, []byte("no"))
	require.Equal(t, sys.EBADF, err)
}

func TestFileSystem_capabilities(t *testing.T) {
	var stdout, stderr bytes.Buffer
	fsys := newTestFileSystem(t, NewFSConfig().
		WithStdin(strings.NewReader("input")).
		WithStdout(&stdout).
		WithStderr(&stderr))

	stdin, err := fsys.Get(0)
	require.NoError(t, err)
	_, err = stdin.Write([]byte("x"))
	require.Equal(t, sys.ErrInvalidOperation, err)
	_, err = stdin.Seek(0, io.SeekStart)
	require.Equal(t, sys.ErrInvalidOperation, err)

	out, err := fsys.Get(1)
	require.NoError(t, err)
	_, err = out.Read(make([]byte, 1))
	require.Equal(t, sys.ErrInvalidOperation, err)

	_, err = fsys.Read(2, make([]byte, 1))
	require.Equal(t, sys.ErrInvalidOperation, err)

	buf := make([]byte, 5)
	n, err := fsys.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, "input", string(buf[:n]))

	_, err = fsys.Write(1, []byte("out"))
	require.NoError(t, err)
	_, err = fsys.Write(2, []byte("err"))
	require.NoError(t, err)
	require.Equal(t, "out", stdout.String())
	require.Equal(t, "err", stderr.String())
}

func TestFileSystem_concurrentOpen(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig().WithWorkDir(t.TempDir()))

	const n = 64
	fds := make(chan int32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fd, err := fsys.Open(fmt.Sprintf("f%d", i), ModeReadWrite)
			assert.NoError(t, err)
			fds <- fd
		}(i)
	}
	wg.Wait()
	close(fds)

	seen := map[int32]bool{}
	for fd := range fds {
		require.False(t, seen[fd], "descriptor %d issued twice", fd)
		require.True(t, fd >= 3 && fd < 3+n, fd)
		seen[fd] = true
	}
	require.Equal(t, 3+n, fsys.Len())

	// Racing closes: exactly one wins per descriptor.
	var won sync.Map
	for fd := range seen {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(fd int32) {
				defer wg.Done()
				switch err := fsys.Close(fd); {
				case err == nil:
					_, loaded := won.LoadOrStore(fd, true)
					assert.False(t, loaded, "descriptor %d closed twice", fd)
				default:
					assert.Equal(t, sys.EBADF, err)
				}
			}(fd)
		}
	}
	wg.Wait()
	require.Equal(t, 3, fsys.Len())
}

func TestFileSystem_Shutdown(t *testing.T) {
	fsys, err := New(NewFSConfig().WithFS(memfs.New()))
	require.NoError(t, err)

	_, err = fsys.Open("/a", ModeReadWrite)
	require.NoError(t, err)
	require.NoError(t, fsys.Shutdown())
	require.Zero(t, fsys.Len())

	_, err = fsys.Get(0)
	require.Equal(t, sys.EBADF, err)
}

func TestNew_workDir(t *testing.T) {
	_, err := New(NewFSConfig().WithWorkDir(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = New(NewFSConfig().WithWorkDir(file))
	require.EqualError(t, err, fmt.Sprintf("work dir %q is not a directory", file))

	fsys, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, fsys.Shutdown())
}

func TestNew_rootDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("root"), 0o600))

	fsys := newTestFileSystem(t, NewFSConfig().WithRootDir(dir))

	for _, path := range []string{"/a.txt", "a.txt", "../../a.txt"} {
		fd, err := fsys.Open(path, ModeRead)
		require.NoError(t, err, path)
		buf := make([]byte, 4)
		n, err := fsys.Read(fd, buf)
		require.NoError(t, err)
		require.Equal(t, "root", string(buf[:n]))
		require.NoError(t, fsys.Close(fd))
	}

	_, err := fsys.Open("/etc/passwd", ModeRead)
	require.Equal(t, sys.ENOENT, err)

	fd, err := fsys.Open("/b.txt", ModeReadWrite)
	require.NoError(t, err)
	require.NoError(t, fsys.Close(fd))
	require.FileExists(t, filepath.Join(dir, "b.txt"))

	_, err = New(NewFSConfig().WithRootDir(filepath.Join(dir, "a.txt")))
	require.EqualError(t, err, fmt.Sprintf("root dir %q is not a directory", filepath.Join(dir, "a.txt")))
}

func TestFileSystem_errorsAreTokens(t *testing.T) {
	fsys := newTestFileSystem(t, NewFSConfig())

	_, err := fsys.Open("/nonexistent/path", ModeRead)
	var errno sys.Errno
	require.True(t, errors.As(err, &errno))
	require.Equal(t, "ENOENT", err.Error())
}
