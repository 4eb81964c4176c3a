package testsupport

import (
	"path/filepath"
	"testing"

	"verifyd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Analysis.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithSessionTTLHours overrides the session TTL on the test config.
func WithSessionTTLHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Store.SessionTTLHours = hours
	}
}

// WithQueueSize overrides the dispatch queue size on the test config.
func WithQueueSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.QueueSize = size
	}
}
