package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements MetricsCollector using
// github.com/prometheus/client_golang.
type PrometheusCollector struct {
	commands       *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec
	transferBytes  *prometheus.CounterVec
	transferTime   *prometheus.HistogramVec
	connections    *prometheus.CounterVec
	authAttempts   *prometheus.CounterVec
}

// NewPrometheusCollector registers FTP server metrics with reg and
// returns a collector ready to pass to WithMetrics.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Subsystem: "commands",
			Name:      "total",
			Help:      "FTP commands processed, by command and outcome.",
		}, []string{"cmd", "success"}),
		commandLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftpd",
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Time to process an FTP command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cmd"}),
		transferBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Subsystem: "transfers",
			Name:      "bytes_total",
			Help:      "Bytes transferred, by operation.",
		}, []string{"operation"}),
		transferTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftpd",
			Subsystem: "transfers",
			Name:      "duration_seconds",
			Help:      "Transfer duration, by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"operation"}),
		connections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Subsystem: "connections",
			Name:      "total",
			Help:      "Connection attempts, by outcome reason.",
		}, []string{"accepted", "reason"}),
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftpd",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication attempts, by outcome.",
		}, []string{"success"}),
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordCommand implements MetricsCollector.
func (p *PrometheusCollector) RecordCommand(cmd string, success bool, duration time.Duration) {
	p.commands.WithLabelValues(cmd, boolLabel(success)).Inc()
	p.commandLatency.WithLabelValues(cmd).Observe(duration.Seconds())
}

// RecordTransfer implements MetricsCollector.
func (p *PrometheusCollector) RecordTransfer(operation string, bytes int64, duration time.Duration) {
	p.transferBytes.WithLabelValues(operation).Add(float64(bytes))
	p.transferTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordConnection implements MetricsCollector.
func (p *PrometheusCollector) RecordConnection(accepted bool, reason string) {
	p.connections.WithLabelValues(boolLabel(accepted), reason).Inc()
}

// RecordAuthentication implements MetricsCollector.
func (p *PrometheusCollector) RecordAuthentication(success bool, user string) {
	p.authAttempts.WithLabelValues(boolLabel(success)).Inc()
}
