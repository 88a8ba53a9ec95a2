package transport

import (
	"errors"
	"io"
	"strconv"

	"github.com/kframework/portablefs/sys"
)

type handler func(s *Server, args []string) (string, error)

var handlers = map[string]handler{
	"open":  handleOpen,
	"close": handleClose,
	"read":  handleRead,
	"write": handleWrite,
	"seek":  handleSeek,
}

// open <path> <mode> -> <fd>
func handleOpen(s *Server, args []string) (string, error) {
	if len(args) != 2 {
		return "", sys.ErrInvalidArgument
	}
	fd, err := s.fs.Open(args[0], args[1])
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(fd), 10), nil
}

// close <fd>
func handleClose(s *Server, args []string) (string, error) {
	if len(args) != 1 {
		return "", sys.ErrInvalidArgument
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return "", err
	}
	return "", s.fs.Close(fd)
}

// read <fd> <n> -> <data>
func handleRead(s *Server, args []string) (string, error) {
	if len(args) != 2 {
		return "", sys.ErrInvalidArgument
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return "", sys.ErrInvalidArgument
	}
	if n < 0 || n > s.maxRead {
		return "", sys.EINVAL
	}

	buf := make([]byte, n)
	n, err = s.fs.Read(fd, buf)
	if err != nil && (n == 0 || !errors.Is(err, sys.EOF)) {
		return "", err
	}
	// Bytes read before end of stream are delivered; EOF comes next time.
	return strconv.Quote(string(buf[:n])), nil
}

// write <fd> <data> -> <n>
func handleWrite(s *Server, args []string) (string, error) {
	if len(args) != 2 {
		return "", sys.ErrInvalidArgument
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return "", err
	}
	n, err := s.fs.Write(fd, []byte(args[1]))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

// seek <fd> <offset> [<whence>] -> <newOffset>
func handleSeek(s *Server, args []string) (string, error) {
	if len(args) != 2 && len(args) != 3 {
		return "", sys.ErrInvalidArgument
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return "", err
	}
	offset, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", sys.ErrInvalidArgument
	}
	whence := io.SeekStart
	if len(args) == 3 {
		if whence, err = strconv.Atoi(args[2]); err != nil {
			return "", sys.ErrInvalidArgument
		}
	}
	newOffset, err := s.fs.Seek(fd, offset, whence)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(newOffset, 10), nil
}

// parseFd parses a descriptor. Values that cannot name a descriptor are
// reported like unknown descriptors.
func parseFd(arg string) (int32, error) {
	fd, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, sys.EBADF
		}
		return 0, sys.ErrInvalidArgument
	}
	return int32(fd), nil
}
