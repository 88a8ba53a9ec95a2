package sys

import "strconv"

// Errno is a member of the closed error vocabulary shared with the client.
//
// Error returns the stable token, ex. "EBADF", not a description such as
// "bad file descriptor". The token, not the numeric value, is the wire contract.
type Errno uint16

func (e Errno) Error() string {
	if int(e) < len(errnoToString) && errnoToString[e] != "" {
		return errnoToString[e]
	}
	return "errno(" + strconv.Itoa(int(e)) + ")"
}

// The zero value is not an error and has no token.
const (
	// EBADF Bad file descriptor: unknown or already closed descriptor.
	EBADF Errno = iota + 1
	// EACCES Permission denied.
	EACCES
	// EISDIR Is a directory.
	EISDIR
	// ELOOP Too many levels of symbolic links.
	ELOOP
	// ENAMETOOLONG File name too long.
	ENAMETOOLONG
	// ENOENT No such file or directory.
	ENOENT
	// ENOTDIR Not a directory.
	ENOTDIR
	// EINVAL Invalid argument, including a negative seek offset.
	EINVAL
	// EOF End of stream.
	EOF

	// ErrInvalidArgument is an open request with a mode outside {"r","w","rw"}.
	ErrInvalidArgument
	// ErrUnsupportedOperation is an open request for write-only mode.
	ErrUnsupportedOperation
	// ErrInvalidOperation is an operation the file's capability lacks, ex.
	// writing to standard input.
	ErrInvalidOperation
)

var errnoToString = [...]string{
	EBADF:                   "EBADF",
	EACCES:                  "EACCES",
	EISDIR:                  "EISDIR",
	ELOOP:                   "ELOOP",
	ENAMETOOLONG:            "ENAMETOOLONG",
	ENOENT:                  "ENOENT",
	ENOTDIR:                 "ENOTDIR",
	EINVAL:                  "EINVAL",
	EOF:                     "EOF",
	ErrInvalidArgument:      "InvalidArgument",
	ErrUnsupportedOperation: "UnsupportedOperation",
	ErrInvalidOperation:     "InvalidOperation",
}

// ParseErrno returns the Errno for a wire token, or false if the token is not
// part of the vocabulary.
func ParseErrno(token string) (Errno, bool) {
	for i, s := range errnoToString {
		if s != "" && s == token {
			return Errno(i), true
		}
	}
	return 0, false
}
