package server

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Option is a functional option for configuring an FTP server.
type Option func(*Server) error

// WithDriver sets the backend driver for authentication and file
// operations. Required; can only be set once.
func WithDriver(driver Driver) Option {
	return func(s *Server) error {
		if s.driver != nil {
			return fmt.Errorf("driver already set")
		}
		s.driver = driver
		return nil
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithRWTimeout sets the timeout applied to data-channel accepts,
// connects, reads, and writes. Defaults to 5 seconds.
func WithRWTimeout(d time.Duration) Option {
	return func(s *Server) error {
		s.rwTimeout = d
		return nil
	}
}

// WithBindIP sets the IPv4 address advertised in PASV responses.
func WithBindIP(ip net.IP) Option {
	return func(s *Server) error {
		if ip.To4() == nil {
			return fmt.Errorf("bind ip must be IPv4: %v", ip)
		}
		s.bindIP = ip.To4()
		return nil
	}
}

// WithUTF8Capability enables advertising and negotiating UTF-8 path
// encoding via FEAT/OPTS.
func WithUTF8Capability(enabled bool) Option {
	return func(s *Server) error {
		s.utf8Capability = enabled
		return nil
	}
}

// WithSystemEncoding sets the IANA charset name used to translate paths
// for sessions in UTF-8 mode. Defaults to ISO-8859-1.
func WithSystemEncoding(name string) Option {
	return func(s *Server) error {
		s.systemEncoding = name
		return nil
	}
}

// WithWorkerCount sets the number of worker-pool goroutines. Defaults to
// 6.
func WithWorkerCount(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return fmt.Errorf("worker count must be positive")
		}
		s.workerCount = n
		return nil
	}
}

// WithQueueDepth sets the worker pool's maximum queued-task count.
// Defaults to 10000.
func WithQueueDepth(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return fmt.Errorf("queue depth must be positive")
		}
		s.queueDepth = n
		return nil
	}
}

// WithBandwidthLimit caps data-channel transfer throughput, in bytes per
// second. 0 (the default) means unlimited.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(s *Server) error {
		s.bandwidthLimit = bytesPerSecond
		return nil
	}
}

// WithMetrics attaches a MetricsCollector. Nil (the default) disables
// metrics collection.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Server) error {
		s.metrics = collector
		return nil
	}
}
