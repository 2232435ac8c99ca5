package server

import (
	"io"
	"os"
)

// Driver authenticates users and hands back a session-specific
// ClientContext for file operations.
type Driver interface {
	// Authenticate validates user and pass. It returns a non-nil error on
	// invalid credentials; an error matching ErrAnonymousNotAllowed makes
	// the session reply "Anonymous access not allowed." instead of
	// "Login incorrect.".
	Authenticate(user, pass string) (ClientContext, error)
}

// ClientContext performs filesystem operations on behalf of one
// authenticated session.
//
// Paths handed to these methods are the command's raw parameter; each
// implementation composes it against its own notion of the current
// directory (current_dir joined with the parameter, or the parameter
// verbatim if absolute — see FSDriver.resolve) and none of it is confined
// to any root: see FSDriver's doc comment for why this implementation
// does not jail paths. The one exception is Rename's fromPath, which the
// session resolves to an absolute path itself at RNFR time (before it can
// be invalidated by an intervening CWD) and passes through unchanged.
type ClientContext interface {
	// ChangeDir changes the current working directory. Returns
	// os.ErrNotExist if the directory doesn't exist.
	ChangeDir(path string) error

	// GetWd returns the current working directory.
	GetWd() (string, error)

	// MakeDir creates a new directory. Returns os.ErrExist if it
	// already exists.
	MakeDir(path string) error

	// RemoveDir removes a directory. Returns os.ErrNotExist if it
	// doesn't exist.
	RemoveDir(path string) error

	// DeleteFile removes a file. Returns os.ErrNotExist if it doesn't
	// exist.
	DeleteFile(path string) error

	// Rename moves or renames a file or directory.
	Rename(fromPath, toPath string) error

	// ListDir returns the entries of a directory, excluding "." and
	// "..".
	ListDir(path string) ([]os.FileInfo, error)

	// OpenFile opens a file for reading or writing. flag uses os.O_*
	// constants.
	OpenFile(path string, flag int) (io.ReadWriteCloser, error)

	// GetFileInfo returns file or directory metadata.
	GetFileInfo(path string) (os.FileInfo, error)

	// Close releases any resources held by this context, called when
	// the session ends.
	Close() error

	// GetSettings returns passive-mode settings for this session. May
	// return nil to use the server's defaults.
	GetSettings() *Settings
}

// Settings configures passive-mode behavior. Shared across sessions
// unless a Driver returns per-user settings.
type Settings struct {
	// PublicHost is the IPv4 address advertised in PASV responses. If
	// empty, the server's configured bind address is used.
	PublicHost string
}
