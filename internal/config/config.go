// Package config loads a ServerConfig from the line-oriented grammar
// documented for this server: a directive line ending in ':' followed by
// one or more value lines prefixed with '$' (zero or more for users:). A
// directive with no value line fails the load. Lines beginning with '#',
// and blank lines, are ignored.
//
//	ip:
//	$127.0.0.1
//	dir:
//	$/srv/ftp
//	users:
//	$alice secret
//	$bob hunter2
package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Config is the fully validated server configuration loaded from a
// config file.
type Config struct {
	IP               net.IP
	Dir              string
	Port             int
	RWTimeoutSeconds int
	Anonymous        bool
	UTF8             bool
	Encoding         string
	Users            map[string]string

	Workers       int
	QueueDepth    int
	BandwidthCap  int64
	LogLevel      string
}

func defaults() *Config {
	return &Config{
		Port:             4567,
		RWTimeoutSeconds: 5,
		Encoding:         "ISO-8859-1",
		Users:            make(map[string]string),
		Workers:          6,
		QueueDepth:       10000,
		LogLevel:         "info",
	}
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses the grammar from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := defaults()
	var errs *multierror.Error

	sc := bufio.NewScanner(r)
	lineNo := 0
	var directive string
	haveDirective, gotValue := false, false
	sawIP, sawDir := false, false

	flush := func() {
		if haveDirective && !gotValue && directive != "users" {
			errs = multierror.Append(errs, fmt.Errorf("directive %q has no value", directive))
		}
		haveDirective = false
		directive = ""
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasSuffix(line, ":"):
			flush()
			directive = strings.ToLower(strings.TrimSuffix(line, ":"))
			haveDirective, gotValue = true, false

		case strings.HasPrefix(line, "$"):
			if !haveDirective {
				errs = multierror.Append(errs, fmt.Errorf("line %d: value with no preceding directive", lineNo))
				continue
			}
			gotValue = true
			value := strings.TrimSpace(strings.TrimPrefix(line, "$"))
			if err := apply(cfg, directive, value); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
				continue
			}
			switch directive {
			case "ip":
				sawIP = true
			case "dir":
				sawDir = true
			}

		default:
			errs = multierror.Append(errs, fmt.Errorf("line %d: expected directive (ending in ':') or value (starting with '$'): %q", lineNo, line))
		}
	}
	if err := sc.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	flush()

	if !sawIP {
		errs = multierror.Append(errs, fmt.Errorf("missing required directive %q", "ip"))
	}
	if !sawDir {
		errs = multierror.Append(errs, fmt.Errorf("missing required directive %q", "dir"))
	}
	if len(cfg.Dir) > 1023 {
		errs = multierror.Append(errs, fmt.Errorf("dir exceeds 1023 bytes"))
	}

	if errs != nil {
		return nil, errs.ErrorOrNil()
	}
	return cfg, nil
}

func apply(cfg *Config, directive, value string) error {
	switch directive {
	case "ip":
		ip := net.ParseIP(value)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("ip: invalid IPv4 address %q", value)
		}
		cfg.IP = ip.To4()

	case "dir":
		cfg.Dir = value

	case "port":
		p, err := strconv.Atoi(value)
		if err != nil || p < 0 || p > 65535 {
			return fmt.Errorf("port: invalid port %q", value)
		}
		cfg.Port = p

	case "rwtimeout":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("rwtimeout: invalid value %q", value)
		}
		cfg.RWTimeoutSeconds = int(n)

	case "anonymous":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("anonymous: invalid boolean %q", value)
		}
		cfg.Anonymous = b

	case "utf-8", "utf8":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("utf-8: invalid boolean %q", value)
		}
		cfg.UTF8 = b

	case "encoding":
		cfg.Encoding = value

	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("workers: invalid value %q", value)
		}
		cfg.Workers = n

	case "queue":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("queue: invalid value %q", value)
		}
		cfg.QueueDepth = n

	case "bwlimit":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("bwlimit: invalid value %q", value)
		}
		cfg.BandwidthCap = n

	case "loglevel":
		switch value {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = value
		default:
			return fmt.Errorf("loglevel: invalid value %q", value)
		}

	case "users":
		parts := strings.SplitN(value, " ", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("users: expected \"<username> <password>\", got %q", value)
		}
		cfg.Users[parts[0]] = parts[1]

	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
	return nil
}
