package sys

import (
	"io"
	"sync"

	"github.com/kframework/portablefs/internal/descriptor"
	sysapi "github.com/kframework/portablefs/sys"
)

const (
	FdStdin int32 = iota
	FdStdout
	FdStderr
	// FdFirstOpened is the descriptor of the first file opened after
	// initialization. Descriptors only grow from here: a closed descriptor is
	// never handed out again.
	FdFirstOpened
)

// FileTable is a specialization of the descriptor.Table type used to map file
// descriptors to native handles.
type FileTable = descriptor.Table[int32, *sysapi.Handle]

// FSContext owns the descriptor table and the file registry of one server
// process, and keeps them consistent.
//
// Every handle bound in the table has exactly one File in the registry, and
// vice versa. Both are only changed while holding mu, so a concurrent
// LookupFile never observes a half inserted or half removed file.
type FSContext struct {
	mu sync.Mutex

	// openedFiles maps descriptors to handles, including the standard
	// streams at FdStdin, FdStdout and FdStderr.
	openedFiles FileTable

	// files maps handles to the File wrapping them.
	files FileRegistry
}

// NewFSContext creates a FSContext with stdio streams bound to the reserved
// descriptors. Nil streams are noop: stdin is at EOF and writes are discarded.
func NewFSContext(stdin io.Reader, stdout, stderr io.Writer) *FSContext {
	c := &FSContext{}
	for fd, f := range []*sysapi.File{
		FdStdin:  stdinFile(stdin),
		FdStdout: stdioWriterFile("stdout", stdout),
		FdStderr: stdioWriterFile("stderr", stderr),
	} {
		// Fresh handles on an empty table: neither call can fail.
		c.files.Register(f.Handle(), f)
		c.openedFiles.Bind(int32(fd), f.Handle())
	}
	return c
}

// LookupFile returns a file if it is in the table.
func (c *FSContext) LookupFile(fd int32) (*sysapi.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupFile(fd)
}

func (c *FSContext) lookupFile(fd int32) (*sysapi.File, bool) {
	handle, ok := c.openedFiles.Resolve(fd)
	if !ok {
		return nil, false
	}
	return c.files.Lookup(handle)
}

// InsertFile registers f and binds it to a newly allocated descriptor.
//
// sysapi.EBADF is returned when the descriptor space is exhausted or f's
// handle is already known, both of which leave the context unchanged.
func (c *FSContext) InsertFile(f *sysapi.File) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	handle := f.Handle()
	if !c.files.Register(handle, f) {
		return 0, sysapi.EBADF
	}
	fd, ok := c.openedFiles.Allocate()
	if !ok || !c.openedFiles.Bind(fd, handle) {
		c.files.Unregister(handle)
		return 0, sysapi.EBADF
	}
	return fd, nil
}

// DetachFile unbinds fd and unregisters its handle as one step, returning the
// file so the caller can close it. The file is not closed.
func (c *FSContext) DetachFile(fd int32) (*sysapi.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.lookupFile(fd)
	if !ok {
		return nil, false
	}
	c.openedFiles.Unbind(fd)
	c.files.Unregister(f.Handle())
	return f, true
}

// CloseFile detaches fd and returns any error closing its file. An unknown or
// already closed descriptor returns sysapi.EBADF.
func (c *FSContext) CloseFile(fd int32) error {
	f, ok := c.DetachFile(fd)
	if !ok {
		return sysapi.EBADF
	}
	return f.Close()
}

// Len returns the count of open descriptors, including the standard streams
// unless they were closed.
func (c *FSContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openedFiles.Len()
}

// Close implements io.Closer
func (c *FSContext) Close() (err error) {
	c.mu.Lock()
	var files []*sysapi.File
	c.openedFiles.Range(func(fd int32, handle *sysapi.Handle) bool {
		if f, ok := c.files.Lookup(handle); ok {
			files = append(files, f)
			c.files.Unregister(handle)
		}
		return true
	})
	// A closed FSContext cannot be reused, but the counter is kept so no
	// descriptor is issued twice if it is.
	c.openedFiles.Reset()
	c.mu.Unlock()

	// Close any files opened in this context
	for _, f := range files {
		if e := f.Close(); e != nil {
			err = e // This means err returned == the last non-nil error.
		}
	}
	return
}
