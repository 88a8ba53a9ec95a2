// Package sys includes the constants and types shared by the public file system
// API and its internal implementation: the errno vocabulary, the translator from
// host diagnostics to that vocabulary, and capability-tagged files.
package sys

import (
	"fmt"
)

// UnrecognizedOSError is returned when the host produced a diagnostic outside
// the audited catalog used by Translate.
//
// This must never occur. It indicates a defect in the host-error catalog, so
// callers must abort the current operation loudly instead of guessing a code.
// It is intentionally not an Errno, so it cannot be sent to a client as one.
//
// Here's an example of how to detect it:
//
//	if _, err := fsys.Open(path, "r"); err != nil {
//		var unrecognized *sys.UnrecognizedOSError
//		if errors.As(err, &unrecognized) {
//			// log unrecognized.Message and drop the request
//		}
//	--snip--
type UnrecognizedOSError struct {
	message string
}

func NewUnrecognizedOSError(message string) *UnrecognizedOSError {
	return &UnrecognizedOSError{message: message}
}

// Message is the original host diagnostic, verbatim.
func (e *UnrecognizedOSError) Message() string {
	return e.message
}

func (e *UnrecognizedOSError) Error() string {
	return fmt.Sprintf("unrecognized OS error (host-error catalog defect): %s", e.message)
}

// Is allows use via errors.Is
func (e *UnrecognizedOSError) Is(err error) bool {
	if target, ok := err.(*UnrecognizedOSError); ok {
		return e.message == target.message
	}
	return false
}
