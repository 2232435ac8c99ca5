package server

import "fmt"

// handleFEAT advertises PASV and SIZE unconditionally, and UTF8 (with
// its OPTS companion) only if the server was configured with
// utf8_capability. The continuation lines carry no response code, per
// RFC 2389's multiline feature-list format.
func (s *session) handleFEAT() {
	fmt.Fprint(s.conn, "211-Features:\r\n PASV\r\n SIZE\r\n")
	if s.server.utf8Capability {
		fmt.Fprint(s.conn, " UTF8\r\n OPTS UTF8\r\n")
	}
	fmt.Fprint(s.conn, "211 End\r\n")
}
