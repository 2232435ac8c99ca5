package server

import (
	"fmt"
	"os"
	"strings"
)

func (s *session) handlePWD() {
	cwd, err := s.fs.GetWd()
	if err != nil {
		s.reply(550, "Could not get working directory.")
		return
	}
	if s.utf8Mode {
		if translated, err := s.server.codec.ToUTF8(cwd); err == nil {
			cwd = translated
		}
	}
	s.reply(257, fmt.Sprintf("%q", cwd))
}

// resolve composes param against the session's current directory using
// the same absolute/relative rule the driver applies, so a path captured
// now (RNFR) keeps meaning what it meant at capture time even if a later
// CWD changes s.currentDir before it's used.
func (s *session) resolve(param string) string {
	if strings.HasPrefix(param, "/") {
		return param
	}
	return s.currentDir + "/" + param
}

// handleCWD computes the target per the command table: param verbatim if
// absolute, else current_dir + "/" + param.
func (s *session) handleCWD(param string) {
	if err := s.fs.ChangeDir(param); err != nil {
		s.reply(550, "Failed to change directory.")
		return
	}
	dir, err := s.fs.GetWd()
	if err != nil {
		s.reply(550, "Failed to change directory.")
		return
	}
	s.currentDir = dir
	s.reply(250, fmt.Sprintf("Directory changed to %s.", dir))
}

func (s *session) handleMKD(param string) {
	if param == "" {
		s.reply(501, "Syntax error in parameters.")
		return
	}
	if err := s.fs.MakeDir(param); err != nil {
		if os.IsExist(err) {
			s.reply(550, "Directory already exists.")
			return
		}
		s.reply(550, "Create directory failed.")
		return
	}
	s.log().Info("directory created", "user", s.user, "path", param)
	s.reply(257, fmt.Sprintf("%q created.", param))
}

func (s *session) handleRMD(param string) {
	if err := s.fs.RemoveDir(param); err != nil {
		s.reply(550, "Remove directory failed.")
		return
	}
	s.log().Info("directory removed", "user", s.user, "path", param)
	s.reply(250, "Directory removed.")
}

func (s *session) handleDELE(param string) {
	if err := s.fs.DeleteFile(param); err != nil {
		s.reply(550, "Delete failed.")
		return
	}
	s.log().Info("file deleted", "user", s.user, "path", param)
	s.reply(250, "File deleted.")
}

func (s *session) handleSIZE(param string) {
	info, err := s.fs.GetFileInfo(param)
	if err != nil {
		s.reply(550, "File not found.")
		return
	}
	s.reply(213, fmt.Sprintf("%d", info.Size()))
}

func (s *session) handleRNFR(param string) {
	if _, err := s.fs.GetFileInfo(param); err != nil {
		s.reply(550, "File not found.")
		return
	}
	s.renameFrom = s.resolve(param)
	s.reply(350, "Ready for RNTO.")
}

// handleRNTO clears renameFrom whether or not the rename succeeds, per
// invariant 4.
func (s *session) handleRNTO(param string) {
	if s.renameFrom == "" {
		s.reply(503, "RNFR required.")
		return
	}
	from := s.renameFrom
	s.renameFrom = ""

	if err := s.fs.Rename(from, param); err != nil {
		s.reply(550, "Rename failed.")
		return
	}
	s.reply(250, "Rename ok.")
}

// stripBasename returns the last path component of param, matching
// STOR's basename-stripping asymmetry with RETR/DELE/etc.
func stripBasename(param string) string {
	if i := strings.LastIndexByte(param, '/'); i >= 0 {
		return param[i+1:]
	}
	return param
}
