package testsupport

import (
	"path/filepath"
	"testing"

	"reelist/internal/config"
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
	cfg.Server.BaseURL = "http://127.0.0.1:0"
	cfg.Server.APIToken = "test-token"
	cfg.Sync.RefreshInterval = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithServer points the test config at a live test server.
func WithServer(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Server.BaseURL = baseURL
	}
}

// WithRefreshInterval sets the pull throttle in seconds.
func WithRefreshInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.RefreshInterval = seconds
	}
}
