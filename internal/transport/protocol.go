package transport

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kframework/portablefs/sys"
)

// Request is one line sent by the client:
//
//	id SP command *(SP arg) LF
//
// String arguments are Go-quoted, ex. "open \"/tmp/a b\" \"rw\"". Args holds
// them unquoted.
type Request struct {
	ID      uint64
	Command string
	Args    []string
}

var errMalformed = errors.New("malformed request")

// ParseRequest parses a request line without its trailing newline.
func ParseRequest(line string) (Request, error) {
	fields, err := splitFields(strings.TrimSuffix(line, "\r"))
	if err != nil {
		return Request{}, err
	}
	if len(fields) < 2 {
		return Request{}, errMalformed
	}
	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Request{}, errMalformed
	}
	return Request{ID: id, Command: fields[1], Args: fields[2:]}, nil
}

// splitFields splits on single spaces, unquoting fields that start with '"'.
func splitFields(line string) ([]string, error) {
	var fields []string
	for len(line) > 0 {
		var field string
		if line[0] == '"' {
			quoted, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, errMalformed
			}
			if field, err = strconv.Unquote(quoted); err != nil {
				return nil, errMalformed
			}
			line = line[len(quoted):]
		} else {
			i := strings.IndexByte(line, ' ')
			if i < 0 {
				i = len(line)
			}
			field, line = line[:i], line[i:]
			if field == "" {
				return nil, errMalformed // doubled separator
			}
		}
		fields = append(fields, field)

		if len(line) > 0 {
			if line[0] != ' ' || len(line) == 1 {
				return nil, errMalformed
			}
			line = line[1:]
		}
	}
	return fields, nil
}

// FormatOK formats a success reply. An empty value is omitted.
func FormatOK(id uint64, value string) string {
	if value == "" {
		return strconv.FormatUint(id, 10) + " ok\n"
	}
	return strconv.FormatUint(id, 10) + " ok " + value + "\n"
}

// FormatFail formats a failure reply carrying the errno token.
func FormatFail(id uint64, errno sys.Errno) string {
	return strconv.FormatUint(id, 10) + " fail " + errno.Error() + "\n"
}

// Reply is one line sent back to the client. Err is zero on success, and
// Value is the raw text after "ok", still quoted when it is a string.
type Reply struct {
	ID    uint64
	Err   sys.Errno
	Value string
}

// ParseReply parses a reply line without its trailing newline. It is the
// client side of FormatOK and FormatFail.
func ParseReply(line string) (Reply, error) {
	idText, rest, _ := strings.Cut(line, " ")
	id, err := strconv.ParseUint(idText, 10, 64)
	if err != nil {
		return Reply{}, errors.New("malformed reply")
	}
	status, value, _ := strings.Cut(rest, " ")
	switch status {
	case "ok":
		return Reply{ID: id, Value: value}, nil
	case "fail":
		errno, ok := sys.ParseErrno(value)
		if !ok {
			return Reply{}, errors.New("unknown error token: " + strconv.Quote(value))
		}
		return Reply{ID: id, Err: errno}, nil
	}
	return Reply{}, errors.New("malformed reply")
}
