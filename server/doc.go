// Package server implements an FTP server over a bounded worker pool and
// a per-connection reactor, instead of one goroutine blocked per
// connection for the whole session lifetime.
//
// # Overview
//
//   - Embed an FTP server into your Go application
//   - Use a custom storage backend by implementing Driver
//   - Serve LIST/NLST/RETR/STOR over active (PORT) or passive (PASV) data
//     channels
//   - Negotiate UTF-8 path encoding with OPTS UTF8 ON/OFF
//
// # Getting Started
//
//	driver, err := server.NewFSDriver("/srv/ftp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := server.NewServer(":2121", server.WithDriver(driver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
//
// # Custom Drivers
//
// Implement Driver and ClientContext to connect the server to any
// backend:
//
//	type Driver interface {
//	    Authenticate(user, pass string) (ClientContext, error)
//	}
//
// # What this package does not do
//
// There is no TLS/FTPS support, no IPv6 (EPSV/EPRT), no REST/APPE resume,
// no MLST/MLSD, and no SITE commands. Paths are not confined to the
// configured root: a client that sends an absolute path or enough ".."
// segments can read or write outside it. See FSDriver's doc comment.
package server
