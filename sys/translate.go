package sys

import (
	"errors"
	"io"
	"strings"
)

// catalog is the audited set of host diagnostics, keyed by lower-case text.
//
// The Go runtime is the host, so its own spellings (fs.ErrNotExist,
// fs.ErrClosed, the "negative offset" of ReadAt) sit next to the strerror
// texts of the platform. go-billy's memfs reports I/O against the access mode
// in its own words.
var catalog = map[string]Errno{
	"permission denied":                 EACCES,
	"is a directory":                    EISDIR,
	"too many levels of symbolic links": ELOOP,
	"file name too long":                ENAMETOOLONG,
	"no such file or directory":         ENOENT,
	"file does not exist":               ENOENT,
	"not a directory":                   ENOTDIR,
	"negative seek offset":              EINVAL,
	"negative offset":                   EINVAL,
	"invalid argument":                  EINVAL,
	"bad file descriptor":               EBADF,
	"file already closed":               EBADF,
	"read not supported":                EBADF,
	"write not supported":               EBADF,
	"eof":                               EOF,
	"unexpected eof":                    EOF,
}

// TranslateMessage maps a host diagnostic to an Errno.
//
// When the text has the form "op path: reason", only the reason after the last
// ": " is matched. Matching ignores case. Text outside the catalog returns an
// *UnrecognizedOSError holding the original message.
func TranslateMessage(message string) error {
	reason := message
	if i := strings.LastIndex(reason, ": "); i >= 0 {
		reason = reason[i+2:]
	}
	if errno, ok := catalog[strings.ToLower(strings.TrimSpace(reason))]; ok {
		return errno
	}
	return NewUnrecognizedOSError(message)
}

// Translate maps a native error to an Errno, or to an *UnrecognizedOSError
// when its diagnostic is not in the catalog.
//
// A nil input returns nil. Errors that are already translated are returned
// as-is, so it is safe to call on any error crossing the package boundary.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	var unrecognized *UnrecognizedOSError
	if errors.As(err, &unrecognized) {
		return unrecognized
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return EOF
	}

	translated := TranslateMessage(diagnostic(err))
	if _, ok := translated.(Errno); !ok {
		// Keep the full text for whoever has to extend the catalog.
		return NewUnrecognizedOSError(err.Error())
	}
	return translated
}

// diagnostic returns the text of the innermost wrapped error, which strips
// *fs.PathError, *os.SyscallError and fmt.Errorf("...: %w") decorations.
func diagnostic(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}
