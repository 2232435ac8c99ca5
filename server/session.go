package server

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hollowloop/ftpd/internal/reactor"
)

// maxParseBuffer is the limit on unparsed command bytes per invariant 7:
// a session that exceeds it without completing a line is a protocol
// error, not merely slow. Checked on the buffer before a line is
// consumed, not only on the post-trim residual, so a client can't stall
// the check by never sending "\r\n".
const maxParseBuffer = 1024

// dataMode records which data-channel setup a session has negotiated.
type dataMode int

const (
	dataModeNone dataMode = iota
	dataModeActive
	dataModePassive
)

// session holds per-connection FTP state. Exactly one worker-pool task
// touches a session at a time; the reactor enforces that.
type session struct {
	server *Server
	conn   *reactor.Conn
	id     string
	peerIP string

	fs            ClientContext
	user          string
	authenticated bool
	utf8Mode      bool
	currentDir    string
	renameFrom    string

	mode         dataMode
	activeTarget *net.TCPAddr
	pasvListener net.Listener
	dataConn     net.Conn

	parseBuf []byte

	transfer *transfer

	errorFlag bool

	mu sync.Mutex
}

func generateSessionID() string {
	var b [8]byte
	now := time.Now().UnixNano()
	for i := range b {
		b[i] = "0123456789abcdef"[(now>>(i*4))&0xf]
	}
	return string(b[:])
}

func newSession(s *Server, c *reactor.Conn) *session {
	peerIP := c.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(peerIP); err == nil {
		peerIP = host
	}
	return &session{
		server: s,
		conn:   c,
		id:     generateSessionID(),
		peerIP: peerIP,
	}
}

func (s *session) log() *slog.Logger {
	return s.server.logger.With("session_id", s.id, "remote_ip", s.peerIP)
}

// reply appends a single-line FTP response to the connection's send
// buffer. It does not flush; the caller is responsible for that (the
// reactor event handlers below flush once per event).
func (s *session) reply(code int, text string) {
	fmt.Fprintf(s.conn, "%d %s\r\n", code, text)
}

// OnAccept implements reactor.Handler.
func (s *Server) OnAccept(c *reactor.Conn) {
	sess := newSession(s, c)
	c.Data = sess
	sess.currentDir = "/"
	sess.reply(220, "Welcome")
	c.TryFlush()
	if s.metrics != nil {
		s.metrics.RecordConnection(true, "accepted")
	}
}

// OnReadable implements reactor.Handler: feed new bytes into the
// session's parse buffer, resume any pending transfer, then dispatch as
// many complete commands as are available.
func (s *Server) OnReadable(c *reactor.Conn, data []byte) {
	sess, _ := c.Data.(*session)
	if sess == nil {
		return
	}
	if sess.errorFlag {
		return
	}

	sess.parseBuf = append(sess.parseBuf, data...)
	if len(sess.parseBuf) > maxParseBuffer && indexCRLF(sess.parseBuf) < 0 {
		sess.errorFlag = true
		sess.reply(500, "Command line too long.")
		c.TryFlush()
		c.Conn.Close()
		return
	}

	if sess.transfer != nil {
		sess.transfer.resume(sess)
		if sess.transfer != nil {
			c.TryFlush()
			return
		}
	}

	sess.dispatchLoop()
	if len(sess.parseBuf) > maxParseBuffer {
		sess.errorFlag = true
		sess.reply(500, "Command line too long.")
		c.TryFlush()
		c.Conn.Close()
		return
	}
	c.TryFlush()
}

// OnWritable implements reactor.Handler: retry flushing the send buffer
// and resume a pending transfer waiting on that flush.
func (s *Server) OnWritable(c *reactor.Conn) {
	sess, _ := c.Data.(*session)
	if sess == nil {
		return
	}
	if sess.transfer != nil {
		sess.transfer.resume(sess)
	}
	c.TryFlush()
}

// OnClose implements reactor.Handler.
func (s *Server) OnClose(c *reactor.Conn) {
	sess, _ := c.Data.(*session)
	if sess == nil {
		return
	}
	sess.errorFlag = true
	if sess.transfer != nil {
		sess.transfer.resume(sess)
	}
	sess.closeDataChannel()
	if sess.fs != nil {
		sess.fs.Close()
	}
}

func (s *session) closeDataChannel() {
	if s.dataConn != nil {
		s.dataConn.Close()
		s.dataConn = nil
	}
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
	}
	s.mode = dataModeNone
}

// dispatchLoop parses and executes as many complete "\r\n"-terminated
// commands as are currently buffered, stopping early if a command
// suspends (starts a transfer that didn't finish synchronously).
func (s *session) dispatchLoop() {
	for {
		idx := indexCRLF(s.parseBuf)
		if idx < 0 {
			return
		}

		line := string(s.parseBuf[:idx])
		s.parseBuf = s.parseBuf[idx+2:]

		cmd, param := splitCommand(line)
		s.handleCommand(cmd, param)

		if s.transfer != nil {
			return
		}
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

func splitCommand(line string) (cmd, param string) {
	line = strings.TrimRight(line, "\r\n")
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return strings.ToUpper(line), ""
	}
	return strings.ToUpper(line[:sp]), line[sp+1:]
}
