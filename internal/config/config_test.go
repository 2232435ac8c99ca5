package config

import (
	"strings"
	"testing"
)

func TestParseMinimal(t *testing.T) {
	src := `# comment
ip:
$127.0.0.1
dir:
$/srv/ftp
`
	cfg, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.IP.String() != "127.0.0.1" {
		t.Fatalf("ip = %v", cfg.IP)
	}
	if cfg.Dir != "/srv/ftp" {
		t.Fatalf("dir = %q", cfg.Dir)
	}
	if cfg.Port != 4567 {
		t.Fatalf("port default = %d", cfg.Port)
	}
}

func TestParseUsers(t *testing.T) {
	src := `ip:
$10.0.0.1
dir:
$/data
users:
$alice secret
$bob hunter2
`
	cfg, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Users["alice"] != "secret" || cfg.Users["bob"] != "hunter2" {
		t.Fatalf("users = %v", cfg.Users)
	}
}

func TestParseCollectsMultipleErrors(t *testing.T) {
	src := `ip:
$not-an-ip
port:
$999999
`
	_, err := Parse(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "invalid IPv4") {
		t.Errorf("missing ip error: %s", msg)
	}
	if !strings.Contains(msg, "invalid port") {
		t.Errorf("missing port error: %s", msg)
	}
	if !strings.Contains(msg, `missing required directive "dir"`) {
		t.Errorf("missing dir error: %s", msg)
	}
}

func TestParseUnknownDirective(t *testing.T) {
	src := `ip:
$127.0.0.1
dir:
$/srv/ftp
bogus:
$whatever
`
	_, err := Parse(strings.NewReader(src))
	if err == nil || !strings.Contains(err.Error(), "unknown directive") {
		t.Fatalf("err = %v", err)
	}
}
