// Command ftpd starts the FTP server from a config file, following the
// same invocation contract as the original HSLL server: no arguments
// loads "./config"; "-config <path>" loads the named file; anything
// else is an invalid invocation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hollowloop/ftpd/internal/config"
	"github.com/hollowloop/ftpd/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	path, ok := configPath(os.Args[1:])
	if !ok {
		fmt.Fprintln(os.Stderr, "usage: ftpd [-config <path>]")
		return -1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ftpd: %v\n", err)
		return -1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	driver, err := server.NewFSDriver(cfg.Dir,
		server.WithAuthenticator(authenticator(cfg)),
		server.WithDisableAnonymous(!cfg.Anonymous),
	)
	if err != nil {
		logger.Error("failed to create filesystem driver", "error", err)
		return -1
	}

	opts := []server.Option{
		server.WithDriver(driver),
		server.WithLogger(logger),
		server.WithRWTimeout(time.Duration(cfg.RWTimeoutSeconds) * time.Second),
		server.WithUTF8Capability(cfg.UTF8),
		server.WithSystemEncoding(cfg.Encoding),
		server.WithWorkerCount(cfg.Workers),
		server.WithQueueDepth(cfg.QueueDepth),
		server.WithBandwidthLimit(cfg.BandwidthCap),
	}
	if cfg.IP != nil {
		opts = append(opts, server.WithBindIP(cfg.IP))
	}

	srv, err := server.NewServer(fmt.Sprintf(":%d", cfg.Port), opts...)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return -1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = srv.Shutdown()
	}()

	logger.Info("starting ftp server", "port", cfg.Port, "dir", cfg.Dir)
	if err := srv.ListenAndServe(); err != nil && err != server.ErrServerClosed {
		logger.Error("server exited", "error", err)
		return -1
	}
	return 0
}

// configPath implements the three-way argv contract: no args -> "config"
// in the working directory; "-config <path>" -> path; anything else is
// invalid.
func configPath(args []string) (string, bool) {
	switch len(args) {
	case 0:
		return "config", true
	case 2:
		if args[0] != "-config" {
			return "", false
		}
		return args[1], true
	default:
		return "", false
	}
}

func authenticator(cfg *config.Config) func(user, pass string) (string, bool, error) {
	return func(user, pass string) (string, bool, error) {
		if want, ok := cfg.Users[user]; ok {
			if want != pass {
				return "", false, fmt.Errorf("incorrect password for %q", user)
			}
			return cfg.Dir, false, nil
		}
		if user == "anonymous" || user == "ftp" {
			if !cfg.Anonymous {
				return "", false, server.ErrAnonymousNotAllowed
			}
			return cfg.Dir, true, nil
		}
		return "", false, fmt.Errorf("unknown user %q", user)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

