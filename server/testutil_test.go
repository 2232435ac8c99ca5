package server

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"
)

func fatalIfErr(t *testing.T, err error, format string, args ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf(format+": %v", append(args, err)...)
	}
}

// startTestServer starts a Server rooted at a temp directory and returns
// it along with its listening address and root directory. Shutdown is
// registered with t.Cleanup.
func startTestServer(t *testing.T, opts ...Option) (*Server, string, string) {
	t.Helper()
	rootDir := t.TempDir()

	driver, err := NewFSDriver(rootDir,
		WithAuthenticator(func(user, pass string) (string, bool, error) {
			if user == "alice" && pass == "secret" {
				return rootDir, false, nil
			}
			if user == "anonymous" || user == "ftp" {
				return rootDir, true, nil
			}
			return "", false, fmt.Errorf("bad credentials")
		}),
	)
	fatalIfErr(t, err, "NewFSDriver failed")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	fatalIfErr(t, err, "listen failed")

	allOpts := append([]Option{WithDriver(driver)}, opts...)
	srv, err := NewServer(ln.Addr().String(), allOpts...)
	fatalIfErr(t, err, "NewServer failed")

	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return srv, ln.Addr().String(), rootDir
}

// wireClient speaks the FTP control channel directly, since this module
// implements a server only and carries no client library.
type wireClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialFTP(t *testing.T, addr string) *wireClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	fatalIfErr(t, err, "dial failed")
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	c := &wireClient{t: t, conn: conn, r: bufio.NewReader(conn)}
	c.expectCode(220)
	return c
}

func (c *wireClient) close() {
	_ = c.conn.Close()
}

// send writes one command line, terminated with CRLF.
func (c *wireClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\r\n"))
	fatalIfErr(c.t, err, "write %q failed", line)
}

// readLine reads one reply line, stripping the trailing CRLF.
func (c *wireClient) readLine() string {
	c.t.Helper()
	line, err := c.r.ReadString('\n')
	fatalIfErr(c.t, err, "read failed")
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// sendExpect sends a command and reads a single-line reply, failing the
// test if its status code doesn't match want.
func (c *wireClient) sendExpect(line string, want int) string {
	c.t.Helper()
	c.send(line)
	return c.expectCode(want)
}

func (c *wireClient) expectCode(want int) string {
	c.t.Helper()
	line := c.readLine()
	var got int
	fmt.Sscanf(line, "%d", &got)
	if got != want {
		c.t.Fatalf("expected reply code %d, got %q", want, line)
	}
	return line
}

// login performs the USER/PASS exchange and fails the test on anything
// but a 230.
func (c *wireClient) login(user, pass string) {
	c.t.Helper()
	c.sendExpect("USER "+user, 331)
	c.sendExpect("PASS "+pass, 230)
}

// readMultiline reads FEAT-style multiline replies: continuation
// lines with no leading code, terminated by a line starting with code+" ".
func (c *wireClient) readMultiline(code int) []string {
	c.t.Helper()
	var lines []string
	prefix := fmt.Sprintf("%d ", code)
	for {
		line := c.readLine()
		lines = append(lines, line)
		if len(line) >= len(prefix) && line[:len(prefix)] == prefix {
			return lines
		}
	}
}
