// Package transport carries file requests between a remote client and a
// portablefs.FileSystem over a line-oriented protocol.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/kframework/portablefs/sys"
)

// FileSystem is the subset of portablefs.FileSystem served to clients.
type FileSystem interface {
	Open(path, mode string) (int32, error)
	Close(fd int32) error
	Read(fd int32, buf []byte) (int, error)
	Write(fd int32, buf []byte) (int, error)
	Seek(fd int32, offset int64, whence int) (int64, error)
}

const (
	// DefaultMaxRead is the largest count a "read" request may ask for.
	DefaultMaxRead = 1 << 20
	// maxLineOverhead bounds a request line beyond its payload: id, command,
	// descriptor and the quoting of the payload.
	maxLineOverhead = 4096
)

// Server serves requests from any number of connections against one shared
// FileSystem. Requests on a connection are handled in order.
type Server struct {
	fs          FileSystem
	logger      log.Logger
	maxRead     int
	idleTimeout time.Duration

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMaxRead bounds the count of a "read" request. Larger reads reply EINVAL.
func WithMaxRead(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRead = n
		}
	}
}

// WithIdleTimeout drops a connection when no request arrives within d. Zero
// disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// NewServer returns a Server for fs. A nil logger discards logs.
func NewServer(fs FileSystem, logger log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		fs:      fs,
		logger:  logger,
		maxRead: DefaultMaxRead,
		conns:   map[net.Conn]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections on ln until ctx is done, then closes ln and every
// open connection and waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeConns()
	})
	defer stop()

	s.logger.Info("serving", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				s.closeConns()
			}
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.ServeConn(conn)
		}()
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for c := range s.conns {
		_ = c.Close()
	}
}

// ServeConn handles requests on conn until the client disconnects, the idle
// timeout elapses or the FileSystem reports an *sys.UnrecognizedOSError. conn
// is closed on return.
//
// An unrecognized OS error is never sent to the client: the connection is
// dropped and the error returned, as the host-error catalog needs fixing.
func (s *Server) ServeConn(conn net.Conn) error {
	session := uuid.New().String()
	logger := s.logger.With("session", session)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return conn.Close()
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	logger.Debug("connection opened", "remote", conn.RemoteAddr().String())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 4*s.maxRead+maxLineOverhead)
	w := bufio.NewWriter(conn)
	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("connection closed")
				return nil
			}
			logger.Warn("connection dropped", "err", err)
			return err
		}

		reply, err := s.handle(logger, scanner.Text())
		if err != nil {
			return err
		}
		if _, err = io.WriteString(w, reply); err == nil {
			err = w.Flush()
		}
		if err != nil {
			logger.Warn("write failed, closing connection", "err", err)
			return err
		}
	}
}

// handle returns the reply line for one request line, or an error when the
// connection must be dropped.
func (s *Server) handle(logger log.Logger, line string) (string, error) {
	req, err := ParseRequest(line)
	if err != nil {
		logger.Debug("malformed request", "line", line)
		// The id may not have parsed: reply with whatever prefix was given.
		return FormatFail(leadingID(line), sys.ErrInvalidArgument), nil
	}

	h, ok := handlers[req.Command]
	if !ok {
		logger.Debug("unknown command", "id", req.ID, "command", req.Command)
		return FormatFail(req.ID, sys.ErrInvalidArgument), nil
	}

	value, err := h(s, req.Args)
	if err == nil {
		return FormatOK(req.ID, value), nil
	}

	var errno sys.Errno
	if errors.As(err, &errno) {
		logger.Debug("request failed", "id", req.ID, "command", req.Command, "errno", errno.Error())
		return FormatFail(req.ID, errno), nil
	}
	logger.Error("aborting connection", "id", req.ID, "command", req.Command, "err", err)
	return "", err
}

func leadingID(line string) uint64 {
	for i := 0; i < len(line); i++ {
		if line[i] < '0' || line[i] > '9' {
			line = line[:i]
			break
		}
	}
	id, _ := strconv.ParseUint(line, 10, 64)
	return id
}
