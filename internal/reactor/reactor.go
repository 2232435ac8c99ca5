// Package reactor delivers accept/readable/writable/close events for
// TCP connections to a Handler while keeping at most one worker-pool
// task active on a given connection at once.
//
// Go's net.Conn has no portable nonblocking "would it block" probe the
// way a raw socket polled by epoll/kqueue does, so each connection is
// driven by a single pump goroutine performing blocking reads. That
// goroutine disarms itself before handing an event to the pool and is
// re-armed only once the handler has finished with the connection,
// which reproduces the reactor's disarm-then-submit discipline without
// a real poller underneath it.
package reactor

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/hollowloop/ftpd/internal/workerpool"
)

// Handler receives lifecycle events for a Conn. Implementations must not
// block for long inside these callbacks beyond the work the pool task
// itself performs. OnAccept, OnReadable and OnWritable run on worker-pool
// goroutines; OnClose runs on the goroutine that tears the connection
// down (the connection's pump goroutine, or one started by CloseAll).
type Handler interface {
	OnAccept(c *Conn)
	OnReadable(c *Conn, data []byte)
	OnWritable(c *Conn)
	OnClose(c *Conn)
}

// Conn wraps a net.Conn with the buffering and arm/disarm bookkeeping the
// reactor needs. A Conn is owned by exactly one Reactor.
type Conn struct {
	net.Conn

	reader *bufio.Reader
	writer *bufio.Writer

	mu      sync.Mutex
	idle    bool
	closed  bool
	idleCnd *sync.Cond

	closeOnce sync.Once

	// Data carries arbitrary per-connection state owned by the handler
	// (the FTP session, in this module).
	Data any
}

// NewConn wraps nc for use outside a Reactor's own accept loop — for
// tests, or for embedding a single pre-established connection (e.g. one
// accepted by other means) into the reactor's buffering/flush model.
func NewConn(nc net.Conn) *Conn {
	return newConn(nc)
}

func newConn(nc net.Conn) *Conn {
	c := &Conn{
		Conn:   nc,
		reader: bufio.NewReaderSize(nc, 4096),
		writer: bufio.NewWriterSize(nc, 4096),
		idle:   true,
	}
	c.idleCnd = sync.NewCond(&c.mu)
	return c
}

// TryFlush attempts a best-effort nonblocking flush of any buffered
// output by setting a near-zero write deadline. It returns true if the
// buffer fully drained, false if some bytes are still pending (the
// caller should retry on the next writable event).
func (c *Conn) TryFlush() bool {
	if c.writer.Buffered() == 0 {
		return true
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
	err := c.writer.Flush()
	_ = c.Conn.SetWriteDeadline(time.Time{})
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return c.writer.Buffered() == 0
		}
		return false
	}
	return true
}

// Write queues bytes into the connection's output buffer without
// flushing; the reactor flushes opportunistically via TryFlush.
func (c *Conn) Write(p []byte) (int, error) {
	return c.writer.Write(p)
}

// Reader exposes the buffered reader for callers that need to read
// directly (the session's command parser never does; the pump goroutine
// does all reading).
func (c *Conn) Reader() *bufio.Reader { return c.reader }

func (c *Conn) setIdle(v bool) {
	c.mu.Lock()
	c.idle = v
	if v {
		c.idleCnd.Broadcast()
	}
	c.mu.Unlock()
}

func (c *Conn) waitIdle() {
	c.mu.Lock()
	for !c.idle {
		c.idleCnd.Wait()
	}
	c.mu.Unlock()
}

// Reactor accepts connections on a listener and drives Handler callbacks
// through a bounded worker pool.
type Reactor struct {
	pool    *workerpool.Pool
	handler Handler

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// New creates a Reactor that dispatches events through pool to handler.
func New(pool *workerpool.Pool, handler Handler) *Reactor {
	return &Reactor{
		pool:    pool,
		handler: handler,
		conns:   make(map[*Conn]struct{}),
	}
}

// Serve accepts connections from ln until it returns an error (typically
// because the listener was closed during shutdown).
func (r *Reactor) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		r.adopt(nc)
	}
}

func (r *Reactor) adopt(nc net.Conn) {
	c := newConn(nc)
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()

	c.setIdle(false)
	if !r.pool.Submit(workerpool.TaskFunc(func() {
		r.handler.OnAccept(c)
		r.afterTask(c)
	})) {
		// Backpressure at accept time: give up this connection rather
		// than leak it with no one ever servicing it.
		_ = nc.Close()
		r.forget(c)
		return
	}
	go r.pump(c)
}

// pump performs blocking reads on behalf of the reactor, feeding data to
// the handler via a READ task for each chunk received.
func (r *Reactor) pump(c *Conn) {
	buf := make([]byte, 1024)
	for {
		c.waitIdle()

		n, err := c.reader.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			c.setIdle(false)
			if !r.pool.Submit(workerpool.TaskFunc(func() {
				r.handler.OnReadable(c, chunk)
				r.afterTask(c)
			})) {
				c.setIdle(true)
			}
		}
		if err != nil {
			r.closeConn(c)
			return
		}
	}
}

// Resume schedules a WRITE event for c — used by a session to ask the
// reactor to retry flushing a control-channel send buffer once more
// bytes fit, or to resume a suspended transfer. A no-op once c is
// already closing.
func (r *Reactor) Resume(c *Conn) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.setIdle(false)
	if !r.pool.Submit(workerpool.TaskFunc(func() {
		r.handler.OnWritable(c)
		r.afterTask(c)
	})) {
		c.setIdle(true)
	}
}

func (r *Reactor) afterTask(c *Conn) {
	c.setIdle(true)
}

// closeConn tears a connection down: it marks c closed so pump stops
// submitting new read tasks, waits for whatever task is currently in
// flight to finish, then delivers OnClose and drops c from r.conns. It
// may be called twice for the same Conn — once by pump reacting to a
// read error, once by CloseAll forcing the socket shut during server
// shutdown — so the teardown itself runs through c.closeOnce and the
// second caller just observes it having already happened.
func (r *Reactor) closeConn(c *Conn) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.waitIdle()
	c.closeOnce.Do(func() {
		_ = c.Conn.Close()
		r.handler.OnClose(c)
		r.forget(c)
	})
}

func (r *Reactor) forget(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// CloseAll closes every live connection and delivers OnClose for each,
// used during shutdown so sessions get the same teardown (data channel,
// driver handle) a normal peer-initiated close gets.
func (r *Reactor) CloseAll() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			r.closeConn(c)
		}(c)
	}
	wg.Wait()
}
