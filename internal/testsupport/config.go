package testsupport

import (
	"path/filepath"
	"testing"

	"ocrcache/internal/config"
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
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.Cache.LockDir = filepath.Join(base, "cache", "locks")
	cfgVal.Jobs.Path = filepath.Join(base, "state", "jobs.db")
	cfgVal.API.Bind = "127.0.0.1:0"

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

// WithCacheDisabled turns the result cache off.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithCacheLimits overrides capacity and TTL.
func WithCacheLimits(maxSize, ttlSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.MaxSize = maxSize
		b.cfg.Cache.TTLSeconds = ttlSeconds
	}
}

// WithJobsDisabled turns job history off.
func WithJobsDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jobs.Enabled = false
	}
}

// WithAPIToken requires bearer authentication on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithMaxFileSizeMB overrides the upload size limit.
func WithMaxFileSizeMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recognition.MaxFileSizeMB = mb
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
