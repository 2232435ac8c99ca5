package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hollowloop/ftpd/internal/ratelimit"
)

type transferKind int

const (
	transferList transferKind = iota
	transferRetr
	transferStor
)

// transfer is the suspendable LIST/NLST/RETR/STOR routine. Per the
// concurrency model, only the control-channel banner flush is a real
// suspension point; once that drains, the data phase runs to completion
// (or hard failure) inline within the worker-pool task driving it, since
// Go's blocking net.Conn gives no separate "not ready yet" signal for a
// deadline-bounded data socket the way a polled raw socket would.
type transfer struct {
	kind  transferKind
	param string
	nlst  bool
}

// startTransfer begins a transfer: append the 150 banner and try to run
// it immediately. If the banner can't be flushed yet, the transfer stays
// suspended and is resumed on the next writable event.
func (s *session) startTransfer(kind transferKind, param string, nlst bool) {
	s.transfer = &transfer{kind: kind, param: param, nlst: nlst}
	s.reply(150, "Opening data connection.")
	s.transfer.resume(s)
}

func (t *transfer) resume(s *session) {
	if s.errorFlag {
		s.closeDataChannel()
		s.transfer = nil
		return
	}
	if !s.conn.TryFlush() {
		return
	}

	t.run(s)
	s.transfer = nil
}

func (t *transfer) run(s *session) {
	conn, err := s.establishDataConnection()
	if err != nil {
		s.reply(425, "Can't open data connection.")
		return
	}
	defer s.closeDataChannel()

	var limiter *ratelimit.Limiter
	if s.server.bandwidthLimit > 0 {
		limiter = ratelimit.New(s.server.bandwidthLimit)
	}

	start := time.Now()
	var bytes int64
	var opErr error

	switch t.kind {
	case transferList:
		bytes, opErr = t.runList(s, conn, limiter)
	case transferRetr:
		bytes, opErr = t.runRetr(s, conn, limiter)
		if opErr == errRetrNotFound {
			// runRetr already sent the 550.
			s.recordTransfer(t.kind, bytes, time.Since(start))
			return
		}
	case transferStor:
		bytes, opErr = t.runStor(s, conn, limiter)
		if opErr != nil {
			// the 552/426 reply was already sent by runStor; the
			// 226-after-552 ordering bug is fixed by returning here
			// instead of falling through to the success reply below.
			s.recordTransfer(t.kind, bytes, time.Since(start))
			return
		}
	}

	if opErr != nil {
		s.reply(426, "Connection error during transfer.")
		s.recordTransfer(t.kind, bytes, time.Since(start))
		return
	}

	if t.kind == transferList {
		s.reply(226, "Directory send OK.")
	} else {
		s.reply(226, "Transfer complete.")
	}
	s.recordTransfer(t.kind, bytes, time.Since(start))
}

func (s *session) recordTransfer(kind transferKind, bytes int64, d time.Duration) {
	if s.server.metrics == nil {
		return
	}
	op := "LIST"
	switch kind {
	case transferRetr:
		op = "RETR"
	case transferStor:
		op = "STOR"
	}
	s.server.metrics.RecordTransfer(op, bytes, d)
}

func (t *transfer) runList(s *session, conn io.Writer, limiter *ratelimit.Limiter) (int64, error) {
	entries, err := s.fs.ListDir(t.param)
	if err != nil {
		return 0, err
	}

	var buf []byte
	for _, info := range entries {
		if t.nlst {
			buf = append(buf, info.Name()...)
			buf = append(buf, '\r', '\n')
			continue
		}
		buf = append(buf, listLine(info)...)
	}

	if s.utf8Mode {
		translated, err := s.server.codec.ToUTF8(string(buf))
		if err == nil {
			buf = []byte(translated)
		}
	}

	w := io.Writer(conn)
	if limiter != nil {
		w = ratelimit.NewWriter(w, limiter)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// errRetrNotFound reports that runRetr already replied 550.
var errRetrNotFound = errors.New("not found")

func (t *transfer) runRetr(s *session, conn io.Writer, limiter *ratelimit.Limiter) (int64, error) {
	info, err := s.fs.GetFileInfo(t.param)
	if err != nil || !info.Mode().IsRegular() {
		s.reply(550, "File not found.")
		return 0, errRetrNotFound
	}
	f, err := s.fs.OpenFile(t.param, os.O_RDONLY)
	if err != nil {
		s.reply(550, "File not found.")
		return 0, errRetrNotFound
	}
	defer f.Close()

	w := io.Writer(conn)
	if limiter != nil {
		w = ratelimit.NewWriter(w, limiter)
	}
	return io.Copy(w, bufio.NewReaderSize(f, 8192))
}

// runStor strips the basename from the client-supplied path before
// composing the destination, per the preserved asymmetry with
// RETR/DELE/etc.
func (t *transfer) runStor(s *session, conn io.Reader, limiter *ratelimit.Limiter) (int64, error) {
	dest := stripBasename(t.param)
	f, err := s.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		s.reply(550, "Failed to create file.")
		return 0, fmt.Errorf("create failed")
	}
	defer f.Close()

	r := io.Reader(conn)
	if limiter != nil {
		r = ratelimit.NewReader(r, limiter)
	}

	// io.Copy would merge read-side and write-side errors; STOR needs to
	// tell them apart, since a bad data socket is a 426 but a full disk
	// is a 552.
	buf := make([]byte, 8192)
	var n int64
	for {
		rn, rerr := r.Read(buf)
		if rn > 0 {
			wn, werr := f.Write(buf[:rn])
			n += int64(wn)
			if werr != nil {
				s.reply(552, "Storage allocation exceeded.")
				return n, werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return n, nil
			}
			s.reply(426, "Connection error during transfer.")
			return n, rerr
		}
	}
}

// listLine formats one UNIX-style LIST line per the literal format
// "perm(10) 1 owner group %8lld <Mon dd HH:MM> name\r\n".
func listLine(info os.FileInfo) string {
	return fmt.Sprintf("%s 1 owner group %8d %s %s\r\n",
		permString(info), info.Size(), info.ModTime().Format("Jan 02 15:04"), info.Name())
}

func permString(info os.FileInfo) string {
	b := make([]byte, 10)
	if info.IsDir() {
		b[0] = 'd'
	} else {
		b[0] = '-'
	}
	mode := info.Mode().Perm()
	bits := "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<(8-i)) != 0 {
			b[i+1] = bits[i]
		} else {
			b[i+1] = '-'
		}
	}
	return string(b)
}
