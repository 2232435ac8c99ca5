package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hollowloop/ftpd/internal/reactor"
	"github.com/hollowloop/ftpd/internal/textenc"
	"github.com/hollowloop/ftpd/internal/workerpool"
)

// Server is the FTP server.
//
// Unlike a server that blocks one goroutine per connection for the whole
// session, Server drives every connection through a bounded worker pool
// (internal/workerpool) via a reactor (internal/reactor): a command is
// one task, a transfer resumption is one task, and a connection never
// occupies more than one worker goroutine at a time.
//
// Lifecycle:
//  1. Create with NewServer.
//  2. Start with ListenAndServe or Serve.
//  3. Runs until the listener is closed or Shutdown is called.
//
// Basic example:
//
//	driver, _ := server.NewFSDriver("/srv/ftp")
//	s, err := server.NewServer(":2121", server.WithDriver(driver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
type Server struct {
	addr   string
	driver Driver
	logger *slog.Logger

	rwTimeout      time.Duration
	bindIP         net.IP
	utf8Capability bool
	systemEncoding string
	codec          *textenc.Codec

	workerCount    int
	queueDepth     int
	bandwidthLimit int64
	metrics        MetricsCollector

	pool    *workerpool.Pool
	reactor *reactor.Reactor

	mu         sync.Mutex
	listener   net.Listener
	inShutdown bool
}

// ErrServerClosed is returned by Serve/ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("ftpd: server closed")

// NewServer creates an FTP server listening on addr (e.g. ":2121"). The
// driver must be supplied via WithDriver.
func NewServer(addr string, options ...Option) (*Server, error) {
	s := &Server{
		addr:           addr,
		logger:         slog.Default(),
		rwTimeout:      5 * time.Second,
		systemEncoding: "ISO-8859-1",
		workerCount:    6,
		queueDepth:     10000,
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.driver == nil {
		return nil, fmt.Errorf("driver is required (use WithDriver option)")
	}

	codec, err := textenc.New(s.systemEncoding)
	if err != nil {
		return nil, err
	}
	s.codec = codec

	s.pool = workerpool.New(s.workerCount, s.queueDepth)
	s.reactor = reactor.New(s.pool, s)

	return s, nil
}

// ListenAndServe opens a TCP listener on the configured address and
// serves on it. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.logger.Info("ftp server listening", "addr", s.addr)
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.inShutdown {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	err := s.reactor.Serve(ln)

	s.mu.Lock()
	shuttingDown := s.inShutdown
	s.mu.Unlock()
	if shuttingDown {
		return ErrServerClosed
	}
	return err
}

// Shutdown stops accepting new connections, closes every active
// connection, and drains the worker pool.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.inShutdown = true
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.reactor.CloseAll()
	s.pool.Shutdown()
	return err
}
