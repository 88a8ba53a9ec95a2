package sys

import (
	"io"

	sysapi "github.com/kframework/portablefs/sys"
)

// stdinFile returns the Readable file bound to FdStdin. A nil reader is a
// noop stream that is always at EOF.
func stdinFile(r io.Reader) *sysapi.File {
	return sysapi.NewReadable(sysapi.NewHandle("stdin"), r)
}

// stdioWriterFile returns a Writable file bound to FdStdout or FdStderr. A nil
// writer discards everything written.
func stdioWriterFile(name string, w io.Writer) *sysapi.File {
	return sysapi.NewWritable(sysapi.NewHandle(name), w)
}
