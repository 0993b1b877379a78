package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/swapkit-dev/swapkit"
	"github.com/swapkit-dev/swapkit/pkg/dom"
)

// Config configures a Server.
type Config struct {
	// Address to listen on. Default: ":8080".
	Address string

	// ReadBufferSize is the WebSocket read buffer size. Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size. Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the WebSocket handshake origin.
	// Default: same-host check.
	CheckOrigin func(r *http.Request) bool

	// ReadHeaderTimeout bounds HTTP header reads. Default: 10s.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 30s.
	ShutdownTimeout time.Duration

	// MetricsNamespace is the Prometheus namespace. Default: "swapkit".
	MetricsNamespace string

	// Registry receives the server's metrics.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// TracerName names the OpenTelemetry tracer. Default: "swapkit".
	TracerName string

	// Session configures per-session behavior.
	Session *SessionConfig

	// Engine is the scheduler configuration handed to every session.
	Engine swapkit.Config

	// NewDocument builds the initial DOM mirror for a session. It runs
	// once per connection, before any events are replayed.
	NewDocument func() *dom.Document

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// SessionConfig holds per-session tunables.
type SessionConfig struct {
	// QueueSize is the session loop's dispatch buffer. Events arriving
	// while it is full are dropped and counted. Default: 256.
	QueueSize int

	// SendBuffer is the outbound frame buffer. Default: 32.
	SendBuffer int

	// PingInterval is how often the session pings the client.
	// Default: 30s.
	PingInterval time.Duration

	// WriteTimeout bounds one outbound WebSocket write. Default: 10s.
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with all defaults set.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MetricsNamespace:  "swapkit",
		Registry:          prometheus.DefaultRegisterer,
		TracerName:        "swapkit",
		Session:           DefaultSessionConfig(),
	}
}

// DefaultSessionConfig returns a SessionConfig with all defaults set.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		QueueSize:    256,
		SendBuffer:   32,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// withDefaults fills unset fields in place and returns cfg.
func (cfg *Config) withDefaults() *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.Address == "" {
		cfg.Address = defaults.Address
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = defaults.ReadBufferSize
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaults.WriteBufferSize
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = defaults.MetricsNamespace
	}
	if cfg.Registry == nil {
		cfg.Registry = defaults.Registry
	}
	if cfg.TracerName == "" {
		cfg.TracerName = defaults.TracerName
	}
	if cfg.Session == nil {
		cfg.Session = DefaultSessionConfig()
	} else {
		sd := DefaultSessionConfig()
		if cfg.Session.QueueSize == 0 {
			cfg.Session.QueueSize = sd.QueueSize
		}
		if cfg.Session.SendBuffer == 0 {
			cfg.Session.SendBuffer = sd.SendBuffer
		}
		if cfg.Session.PingInterval == 0 {
			cfg.Session.PingInterval = sd.PingInterval
		}
		if cfg.Session.WriteTimeout == 0 {
			cfg.Session.WriteTimeout = sd.WriteTimeout
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewDocument == nil {
		cfg.NewDocument = dom.NewDocument
	}
	return cfg
}
