// Package m1ktest provides an in-process m1k server for tests and examples.
//
// Server speaks the line-delimited wire protocol over real TCP sockets: one
// connection per exchange, a single command line in, a single reply line out.
// Replies come from a Handler, which can be a test script or a Simulator.
package m1ktest

import (
	"bytes"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jmball/go-m1k/logger"
)

// Handler produces the reply line for one received command line. The command
// and reply are both without the terminator.
type Handler func(cmd string) string

// Server is a minimal m1k server bound to a loopback port.
type Server struct {
	ln      net.Listener
	term    []byte
	handler Handler
	logger  logger.Logger

	wg        sync.WaitGroup
	closed    atomic.Bool
	connCount atomic.Int64
}

// Option customizes a Server.
type Option func(*Server)

// WithTerminator sets the message terminator the server frames with.
// The default is "\n".
func WithTerminator(term string) Option {
	return func(s *Server) {
		s.term = []byte(term)
	}
}

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Start binds a server to an ephemeral loopback port and begins accepting
// connections. Each accepted connection carries exactly one exchange.
func Start(handler Handler, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:      ln,
		term:    []byte("\n"),
		handler: handler,
		logger:  logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Host returns the host the server is bound to.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the port the server is bound to.
func (s *Server) Port() int {
	_, portStr, _ := net.SplitHostPort(s.ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return port
}

// ConnCount returns the number of connections accepted so far.
func (s *Server) ConnCount() int64 {
	return s.connCount.Load()
}

// Close stops accepting connections and waits for in-flight exchanges.
func (s *Server) Close() error {
	s.closed.Store(true)
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !s.closed.Load() && !errors.Is(err, net.ErrClosed) {
				s.logger.Error("accept failed", "error", err)
			}
			return
		}

		s.connCount.Add(1)
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// serve handles one request-response exchange, then closes the connection.
func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, 0, 256)
	chunk := make([]byte, 256)
	for !bytes.HasSuffix(buf, s.term) {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return
		}
	}

	cmd := string(buf[:len(buf)-len(s.term)])
	reply := s.handler(cmd)
	s.logger.Debug("exchange", "cmd", cmd, "reply", reply)

	if _, err := conn.Write(append([]byte(reply), s.term...)); err != nil {
		s.logger.Error("write reply failed", "error", err)
	}
}
