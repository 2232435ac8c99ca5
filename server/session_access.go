package server

import "errors"

// handleUSER stores the candidate username. The session is not
// authenticated until a matching PASS follows.
func (s *session) handleUSER(user string) {
	s.user = user
	s.reply(331, "User name okay, need password.")
}

// handlePASS authenticates against the driver: anonymous access if
// anonymous_allowed, otherwise whatever the driver's own credential
// check decides.
func (s *session) handlePASS(pass string) {
	ctx, err := s.server.driver.Authenticate(s.user, pass)
	if err != nil {
		s.log().Warn("authentication failed", "user", s.user, "reason", err.Error())
		if s.server.metrics != nil {
			s.server.metrics.RecordAuthentication(false, s.user)
		}
		if errors.Is(err, ErrAnonymousNotAllowed) {
			s.reply(530, "Anonymous access not allowed.")
			return
		}
		s.reply(530, "Login incorrect.")
		return
	}

	s.fs = ctx
	s.authenticated = true
	if dir, err := ctx.GetWd(); err == nil {
		s.currentDir = dir
	}

	s.log().Info("authentication succeeded", "user", s.user)
	if s.server.metrics != nil {
		s.server.metrics.RecordAuthentication(true, s.user)
	}
	s.reply(230, "User logged in.")
}

// handleOPTS implements OPTS UTF8 ON/OFF per the command table; any
// other option is unrecognized.
func (s *session) handleOPTS(arg string) {
	if !s.server.utf8Capability {
		s.reply(501, "Option not understood.")
		return
	}
	switch upper(arg) {
	case "UTF8 ON":
		s.utf8Mode = true
		s.reply(200, "UTF8 enabled.")
	case "UTF8 OFF":
		s.utf8Mode = false
		s.reply(200, "UTF8 disabled.")
	default:
		s.reply(501, "Option not understood.")
	}
}

func (s *session) handleTYPE(arg string) {
	switch upper(arg) {
	case "", "I":
		s.reply(200, "Type set to I")
	case "A":
		s.reply(200, "Type set to A")
	default:
		s.reply(504, "Invalid type.")
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
