package server

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowloop/ftpd/internal/reactor"
	"pgregory.net/rapid"
)

// newTestSession builds a session with a real pipe-backed reactor.Conn
// (drained in the background so buffered replies never block) and an
// fsContext rooted at dir, bypassing the network/auth layers for tests
// that only exercise session-level invariants.
func newTestSession(t *testing.T, dir string) *session {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })
	go io.Copy(io.Discard, clientSide)

	return &session{
		conn:       reactor.NewConn(serverSide),
		fs:         &fsContext{cwd: dir},
		currentDir: dir,
	}
}

// TestAuthInvariant is the property from invariant 3: Authenticate
// succeeds iff (user,pass) is a registered credential pair, or user is
// "anonymous" (or its alias "ftp") and anonymous access is allowed.
func TestAuthInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		users := map[string]string{"alice": "secret", "bob": "hunter2"}
		anonymousAllowed := rapid.Bool().Draw(rt, "anonymousAllowed")

		candidates := []string{"alice", "bob", "anonymous", "ftp", "mallory", ""}
		user := rapid.SampledFrom(candidates).Draw(rt, "user")
		pass := rapid.SampledFrom([]string{"secret", "hunter2", "wrong", ""}).Draw(rt, "pass")

		dir := t.TempDir()
		driver, err := NewFSDriver(dir,
			WithAuthenticator(func(u, p string) (string, bool, error) {
				if want, ok := users[u]; ok {
					if want != p {
						return "", false, os.ErrPermission
					}
					return dir, false, nil
				}
				if anonymousAllowed && (u == "anonymous" || u == "ftp") {
					return dir, true, nil
				}
				return "", false, os.ErrPermission
			}),
		)
		if err != nil {
			rt.Fatalf("NewFSDriver: %v", err)
		}

		_, err = driver.Authenticate(user, pass)
		succeeded := err == nil

		want, ok := users[user]
		expectSuccess := (ok && want == pass) || (anonymousAllowed && (user == "anonymous" || user == "ftp"))

		if succeeded != expectSuccess {
			rt.Fatalf("Authenticate(%q,%q) succeeded=%v, want %v", user, pass, succeeded, expectSuccess)
		}
	})
}

// TestRenameSequencingInvariant is the property from invariant 4: a
// successful RNFR sets renameFrom to the resolved absolute path, a
// failed RNFR leaves a pending renameFrom untouched, and renameFrom is
// always cleared after RNTO regardless of outcome.
func TestRenameSequencingInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		sess := newTestSession(t, dir)

		steps := rapid.SliceOfN(rapid.SampledFrom([]string{"RNFR_ok", "RNFR_missing", "RNTO"}), 0, 12).Draw(rt, "steps")
		for i, step := range steps {
			switch step {
			case "RNFR_ok":
				name := rapid.StringMatching(`[a-z]{1,6}\.txt`).Draw(rt, "name")
				path := filepath.Join(dir, name)
				fatalIfErr(t, os.WriteFile(path, []byte("x"), 0644), "seed failed")
				pending := sess.renameFrom
				sess.handleRNFR(name)
				if want := sess.resolve(name); sess.renameFrom != want {
					rt.Fatalf("successful RNFR for existing file %q did not set renameFrom to absolute path %q (was %q, pending was %q)", name, want, sess.renameFrom, pending)
				}
			case "RNFR_missing":
				pending := sess.renameFrom
				sess.handleRNFR("does-not-exist.txt")
				if sess.renameFrom != pending {
					rt.Fatalf("failed RNFR must not disturb existing renameFrom")
				}
			case "RNTO":
				from := sess.renameFrom
				dest := rapid.StringMatching(`[a-z]{1,6}-dest\.txt`).Draw(rt, "dest")
				sess.handleRNTO(dest)
				if sess.renameFrom != "" {
					rt.Fatalf("step %d: renameFrom not cleared after RNTO (from was %q)", i, from)
				}
			}
		}
	})
}

// TestParseBufferBoundInvariant is the property from invariant 6/7:
// parse_buffer never exceeds maxParseBuffer bytes without error_flag
// being set.
func TestParseBufferBoundInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		sess := newTestSession(t, dir)
		sess.authenticated = true
		srv := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

		conn := sess.conn
		conn.Data = sess

		chunks := rapid.SliceOfN(rapid.IntRange(1, 200), 0, 20).Draw(rt, "chunkSizes")
		for _, n := range chunks {
			data := make([]byte, n)
			for i := range data {
				data[i] = 'x' // never CRLF, so no command ever completes
			}
			srv.OnReadable(conn, data)
			if len(sess.parseBuf) > maxParseBuffer && !sess.errorFlag {
				rt.Fatalf("parseBuf grew to %d bytes without errorFlag set", len(sess.parseBuf))
			}
			if sess.errorFlag {
				break
			}
		}
	})
}
