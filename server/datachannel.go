package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// handlePORT parses "h1,h2,h3,h4,p1,p2" and switches the session to
// active mode. No connection is opened yet; that happens lazily when a
// transfer calls establishDataConnection.
func (s *session) handlePORT(arg string) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		s.reply(501, "Syntax error in parameters or arguments.")
		return
	}

	octets := make([]byte, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 || n > 255 {
			s.reply(501, "Syntax error in parameters or arguments.")
			return
		}
		octets[i] = byte(n)
	}
	p1, err1 := strconv.Atoi(parts[4])
	p2, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		s.reply(501, "Syntax error in parameters or arguments.")
		return
	}

	s.closeDataChannel()
	s.activeTarget = &net.TCPAddr{
		IP:   net.IPv4(octets[0], octets[1], octets[2], octets[3]),
		Port: p1*256 + p2,
	}
	s.mode = dataModeActive
	s.reply(200, "PORT command successful.")
}

// handlePASV opens a listener with SO_REUSEADDR and advertises it at the
// server's configured bind address.
func (s *session) handlePASV(_ string) {
	s.closeDataChannel()

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", "0.0.0.0:0")
	if err != nil {
		s.reply(425, "Can't open passive connection.")
		return
	}
	s.pasvListener = ln
	s.mode = dataModePassive

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	ip := s.server.bindIP
	if s.fs != nil {
		if settings := s.fs.GetSettings(); settings != nil && settings.PublicHost != "" {
			if parsed := net.ParseIP(settings.PublicHost); parsed != nil {
				ip = parsed.To4()
			}
		}
	}
	if ip == nil {
		if host, _, err := net.SplitHostPort(s.conn.LocalAddr().String()); err == nil {
			if parsed := net.ParseIP(host); parsed != nil {
				ip = parsed.To4()
			}
		}
	}
	if ip == nil {
		ip = net.IPv4(0, 0, 0, 0).To4()
	}

	p1, p2 := port/256, port%256
	s.reply(227, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d).",
		ip[0], ip[1], ip[2], ip[3], p1, p2))
}

// establishDataConnection performs the accept (passive) or dial
// (active) half of the data-channel manager, bounded by rw_timeout.
func (s *session) establishDataConnection() (net.Conn, error) {
	timeout := s.server.rwTimeout

	switch s.mode {
	case dataModePassive:
		tl, ok := s.pasvListener.(*net.TCPListener)
		if !ok {
			return nil, fmt.Errorf("no passive listener")
		}
		if timeout > 0 {
			_ = tl.SetDeadline(time.Now().Add(timeout))
		}
		conn, err := tl.Accept()
		tl.Close()
		s.pasvListener = nil
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(timeout))
		}
		s.dataConn = conn
		return conn, nil

	case dataModeActive:
		if s.activeTarget == nil {
			return nil, fmt.Errorf("no active target")
		}
		conn, err := net.DialTimeout("tcp", s.activeTarget.String(), timeout)
		if err != nil {
			return nil, err
		}
		if timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(timeout))
		}
		s.dataConn = conn
		return conn, nil

	default:
		return nil, fmt.Errorf("no data channel configured")
	}
}
