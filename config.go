package pocketbase

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chimerakang/pocketbase-go/audit"
	"github.com/chimerakang/pocketbase-go/metrics"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the backend address, e.g. "http://127.0.0.1:8090".
	BaseURL string `env:"POCKETBASE_URL" env-required:"true"`

	// MetricsEnabled registers request metrics on the default Prometheus
	// registerer.
	MetricsEnabled bool `env:"POCKETBASE_METRICS" env-default:"false"`

	// AuditEnabled writes auth state changes as JSON lines to stdout.
	AuditEnabled bool `env:"POCKETBASE_AUDIT" env-default:"false"`

	// AuditBufferSize is the audit event queue size. Default: 1000.
	AuditBufferSize int `env:"POCKETBASE_AUDIT_BUFFER" env-default:"1000"`

	// LogLevel is one of debug, info, warn, error. Empty disables logging.
	LogLevel string `env:"POCKETBASE_LOG_LEVEL"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("pocketbase: read config: %w", err)
	}
	return cfg, nil
}

// NewFromConfig creates a client from cfg. Options in opts take precedence
// over the ones derived from cfg.
func NewFromConfig[R any](cfg Config, opts ...Option) (*Client[R], error) {
	if _, err := normalizeBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}

	var explicit options
	for _, opt := range opts {
		opt(&explicit)
	}

	var derived []Option
	if cfg.LogLevel != "" && explicit.logger == nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("pocketbase: invalid log level %q: %w", cfg.LogLevel, err)
		}
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		derived = append(derived, WithLogger(slog.New(h).With("component", "pocketbase")))
	}
	if cfg.MetricsEnabled && explicit.metrics == nil {
		derived = append(derived, WithMetrics(metrics.New(true, prometheus.DefaultRegisterer)))
	}
	if cfg.AuditEnabled && explicit.audit == nil {
		derived = append(derived, WithAuditLogger(audit.New(cfg.AuditBufferSize, audit.WithStdoutHandler())))
	}

	return New[R](cfg.BaseURL, append(derived, opts...)...)
}
