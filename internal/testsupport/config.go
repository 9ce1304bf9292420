package testsupport

import (
	"path/filepath"
	"testing"

	"lingocast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = ""
	cfgVal.AI.APIKey = "sk-test"
	cfgVal.Proxy.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackendURL points the config at a fake backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithAIBaseURL points direct-mode AI calls at a fake provider.
func WithAIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AI.BaseURL = url
	}
}

// WithAIProxy switches the config to proxy mode against url.
func WithAIProxy(url, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AI.Mode = config.AIModeProxy
		b.cfg.AI.ProxyURL = url
		b.cfg.AI.ProxyToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
