package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrAnonymousNotAllowed is returned by FSDriver.Authenticate when the
// client attempted an anonymous login and anonymous access is not
// permitted, distinct from an ordinary bad-credentials rejection.
var ErrAnonymousNotAllowed = errors.New("anonymous access not allowed")

// FSDriver implements Driver using the local filesystem.
//
// Unlike a typical production FTP driver, FSDriver does not jail
// operations to its root path. A target path is computed as the client's
// parameter verbatim if it starts with "/", or as current_dir + "/" +
// parameter otherwise, and handed straight to the OS. "CWD /etc" moves a
// session's view outside rootPath just as literally as "CWD sub" moves
// it into a subdirectory. This is a deliberate fidelity choice (see
// DESIGN.md); embedders that need confinement should wrap ClientContext
// or validate paths in a custom Driver.
type FSDriver struct {
	rootPath string

	// authenticator validates credentials and returns the starting
	// directory for the session. If nil, anonymous logins are accepted
	// with rootPath as the starting directory, subject to
	// disableAnonymous/enableAnonWrite.
	authenticator func(user, pass string) (string, bool, error)

	disableAnonymous bool
	enableAnonWrite   bool

	settings *Settings
}

// FSDriverOption configures an FSDriver.
type FSDriverOption func(*FSDriver)

// NewFSDriver creates a filesystem driver rooted at rootPath. rootPath
// must exist and be a directory.
func NewFSDriver(rootPath string, options ...FSDriverOption) (*FSDriver, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path validation failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", rootPath)
	}

	rootPath, err = filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	d := &FSDriver{rootPath: rootPath}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// WithAuthenticator sets a custom authentication function returning the
// session's starting directory and whether it is read-only.
func WithAuthenticator(fn func(user, pass string) (string, bool, error)) FSDriverOption {
	return func(d *FSDriver) { d.authenticator = fn }
}

// WithDisableAnonymous disables anonymous login when no custom
// authenticator is set.
func WithDisableAnonymous(disable bool) FSDriverOption {
	return func(d *FSDriver) { d.disableAnonymous = disable }
}

// WithAnonWrite allows anonymous users to write. Default read-only.
func WithAnonWrite(enable bool) FSDriverOption {
	return func(d *FSDriver) { d.enableAnonWrite = enable }
}

// WithSettings attaches passive-mode settings advertised to sessions
// using this driver.
func WithSettings(settings *Settings) FSDriverOption {
	return func(d *FSDriver) { d.settings = settings }
}

// Authenticate returns a ClientContext rooted at rootPath (or wherever
// the custom authenticator places the session).
func (d *FSDriver) Authenticate(user, pass string) (ClientContext, error) {
	startDir := d.rootPath
	readOnly := false

	if d.authenticator != nil {
		var err error
		startDir, readOnly, err = d.authenticator(user, pass)
		if err != nil {
			return nil, err
		}
	} else {
		if user != "ftp" && user != "anonymous" {
			return nil, errors.New("only anonymous login allowed")
		}
		if d.disableAnonymous {
			return nil, ErrAnonymousNotAllowed
		}
		readOnly = !d.enableAnonWrite
	}

	return &fsContext{
		cwd:      startDir,
		readOnly: readOnly,
		settings: d.settings,
	}, nil
}

// fsContext implements ClientContext with unconfined path composition.
// See FSDriver's doc comment.
type fsContext struct {
	cwd      string
	readOnly bool
	settings *Settings
}

func (c *fsContext) Close() error { return nil }

// resolve composes path against the current directory, matching the
// operation descriptions literally: absolute paths replace cwd outright,
// everything else is cwd + "/" + path.
func (c *fsContext) resolve(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return c.cwd + "/" + path
}

func (c *fsContext) ChangeDir(path string) error {
	target := c.resolve(path)
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	c.cwd = target
	return nil
}

func (c *fsContext) GetWd() (string, error) {
	return c.cwd, nil
}

func (c *fsContext) MakeDir(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return os.Mkdir(c.resolve(path), 0755)
}

func (c *fsContext) RemoveDir(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return os.Remove(c.resolve(path))
}

func (c *fsContext) DeleteFile(path string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return os.Remove(c.resolve(path))
}

func (c *fsContext) Rename(fromPath, toPath string) error {
	if c.readOnly {
		return os.ErrPermission
	}
	return os.Rename(c.resolve(fromPath), c.resolve(toPath))
}

func (c *fsContext) ListDir(path string) ([]os.FileInfo, error) {
	f, err := os.Open(c.resolve(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (c *fsContext) OpenFile(path string, flag int) (io.ReadWriteCloser, error) {
	if c.readOnly {
		if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
			return nil, os.ErrPermission
		}
	}
	return os.OpenFile(c.resolve(path), flag, 0644)
}

func (c *fsContext) GetFileInfo(path string) (os.FileInfo, error) {
	return os.Stat(c.resolve(path))
}

func (c *fsContext) GetSettings() *Settings {
	if c.settings == nil {
		return &Settings{}
	}
	return c.settings
}
