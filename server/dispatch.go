package server

import "time"

// handleCommand routes one parsed command to its handler. Commands other
// than USER/PASS/OPTS require authentication.
func (s *session) handleCommand(cmd, param string) {
	start := time.Now()
	ok := true
	defer func() {
		if s.server.metrics != nil {
			s.server.metrics.RecordCommand(cmd, ok, time.Since(start))
		}
	}()

	s.log().Debug("command", "cmd", cmd, "param", redactParam(cmd, param))

	switch cmd {
	case "USER":
		s.handleUSER(param)
		return
	case "PASS":
		s.handlePASS(param)
		return
	case "OPTS":
		s.handleOPTS(param)
		return
	}

	if !s.authenticated {
		s.reply(550, "Permission denied.")
		ok = false
		return
	}

	if s.utf8Mode && isPathCommand(cmd) {
		if translated, err := s.server.codec.ToSystem(param); err == nil {
			param = translated
		}
	}

	switch cmd {
	case "PWD", "XPWD":
		s.handlePWD()
	case "SYST":
		s.reply(215, "UNIX Type: L8")
	case "FEAT":
		s.handleFEAT()
	case "QUIT":
		s.reply(221, "Goodbye")
	case "NOOP":
		s.reply(200, "NOOP ok")
	case "TYPE":
		s.handleTYPE(param)
	case "PASV":
		s.handlePASV(param)
	case "PORT":
		s.handlePORT(param)
	case "CWD", "XCWD":
		s.handleCWD(param)
	case "CDUP", "XCUP":
		s.handleCWD("..")
	case "MKD", "XMKD":
		s.handleMKD(param)
	case "RMD", "XRMD":
		s.handleRMD(param)
	case "DELE":
		s.handleDELE(param)
	case "SIZE":
		s.handleSIZE(param)
	case "RNFR":
		s.handleRNFR(param)
	case "RNTO":
		s.handleRNTO(param)
	case "LIST":
		s.startTransfer(transferList, param, false)
	case "NLST":
		s.startTransfer(transferList, param, true)
	case "RETR":
		s.startTransfer(transferRetr, param, false)
	case "STOR":
		s.startTransfer(transferStor, param, false)
	default:
		if param == "" {
			s.reply(501, "Syntax error.")
		} else {
			s.reply(500, "Command error.")
		}
		ok = false
	}
}

func redactParam(cmd, param string) string {
	if cmd == "PASS" {
		return "***"
	}
	return param
}

// isPathCommand reports whether cmd's param is a path that needs UTF-8
// <-> system-encoding transcoding under OPTS UTF8 ON.
func isPathCommand(cmd string) bool {
	switch cmd {
	case "CWD", "XCWD", "MKD", "XMKD", "RMD", "XRMD", "DELE", "SIZE",
		"RNFR", "RNTO", "LIST", "NLST", "RETR", "STOR":
		return true
	default:
		return false
	}
}
