package sys

import (
	"io"
	"sync"
)

// Capability tags a File with the operations it supports.
type Capability uint8

const (
	// Readable is a sequential input stream, ex. standard input.
	Readable Capability = iota + 1
	// Writable is a sequential output stream, ex. standard output.
	Writable
	// SeekableReadWrite is a positionable resource opened from a path. Read,
	// Write and Seek share one cursor.
	SeekableReadWrite
)

func (c Capability) String() string {
	switch c {
	case Readable:
		return "Readable"
	case Writable:
		return "Writable"
	case SeekableReadWrite:
		return "SeekableReadWrite"
	}
	return "Capability(?)"
}

// ReadWriteSeekCloser is the native resource behind a SeekableReadWrite File.
// billy.File and *os.File both satisfy it.
type ReadWriteSeekCloser interface {
	io.ReadWriteSeeker
	io.Closer
}

// File is a tagged variant over Readable, Writable and SeekableReadWrite.
// Operations the tag lacks fail with ErrInvalidOperation.
//
// # Errors
//
// Every error returned is either an Errno or an *UnrecognizedOSError; native
// errors are routed through Translate before they are returned.
//
// # Notes
//
//   - Operations on one File are serialized, so a Close racing a Read or Write
//     either fully precedes or fully follows it.
//   - Close releases the native resource. Calling it twice is not checked here:
//     the descriptor layer guarantees a File is closed once.
type File struct {
	capability Capability
	handle     *Handle

	mu sync.Mutex

	// Exactly one of r, w or rw is set, according to capability.
	r  io.Reader
	w  io.Writer
	rw ReadWriteSeekCloser
}

// NewReadable wraps a sequential input. A nil reader is always at EOF.
func NewReadable(h *Handle, r io.Reader) *File {
	if r == nil {
		r = eofReader{}
	}
	return &File{capability: Readable, handle: h, r: r}
}

// NewWritable wraps a sequential output. A nil writer discards its input.
func NewWritable(h *Handle, w io.Writer) *File {
	if w == nil {
		w = io.Discard
	}
	return &File{capability: Writable, handle: h, w: w}
}

// NewSeekableReadWrite wraps a positionable resource.
func NewSeekableReadWrite(h *Handle, rw ReadWriteSeekCloser) *File {
	return &File{capability: SeekableReadWrite, handle: h, rw: rw}
}

// Capability returns the tag of this file.
func (f *File) Capability() Capability {
	return f.capability
}

// Handle returns the native identity this file wraps.
func (f *File) Handle() *Handle {
	return f.handle
}

// Name returns the path or stream name of the file.
func (f *File) Name() string {
	return f.handle.Name()
}

// Read reads up to len(buf) bytes. At end of stream it returns EOF.
func (f *File) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	var err error
	switch f.capability {
	case Readable:
		n, err = f.r.Read(buf)
	case SeekableReadWrite:
		n, err = f.rw.Read(buf)
	default:
		return 0, ErrInvalidOperation
	}
	return n, Translate(err)
}

// Write writes buf and returns the count written even on error.
func (f *File) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	var err error
	switch f.capability {
	case Writable:
		n, err = f.w.Write(buf)
	case SeekableReadWrite:
		n, err = f.rw.Write(buf)
	default:
		return 0, ErrInvalidOperation
	}
	return n, Translate(err)
}

// Seek sets the shared cursor of a SeekableReadWrite file. whence is one of
// io.SeekStart, io.SeekCurrent or io.SeekEnd.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.capability != SeekableReadWrite {
		return 0, ErrInvalidOperation
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch whence {
	case io.SeekStart:
		// Not every backend rejects this, ex. memfs.
		if offset < 0 {
			return 0, EINVAL
		}
	case io.SeekCurrent, io.SeekEnd:
	default:
		return 0, EINVAL
	}

	var saved int64
	if whence != io.SeekStart && offset < 0 {
		var err error
		if saved, err = f.rw.Seek(0, io.SeekCurrent); err != nil {
			return 0, Translate(err)
		}
	}
	newOffset, err := f.rw.Seek(offset, whence)
	if err == nil && newOffset < 0 {
		// memfs moves the cursor before the start: put it back.
		if _, err = f.rw.Seek(saved, io.SeekStart); err != nil {
			return 0, Translate(err)
		}
		return 0, EINVAL
	}
	return newOffset, Translate(err)
}

// Close releases the native resource. Standard streams are closed only when
// the wrapped reader or writer implements io.Closer.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var c io.Closer
	switch f.capability {
	case Readable:
		c, _ = f.r.(io.Closer)
	case Writable:
		c, _ = f.w.(io.Closer)
	case SeekableReadWrite:
		c = f.rw
	}
	if c == nil {
		return nil
	}
	return Translate(c.Close())
}

type eofReader struct{}

// Read implements io.Reader
func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
