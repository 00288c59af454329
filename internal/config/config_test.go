package config_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ocrcache/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("OCRCACHE_API_TOKEN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "ocrcache")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	wantCache := filepath.Join(tempHome, ".cache", "ocrcache", "results")
	if cfg.Cache.Dir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Cache.Dir, wantCache)
	}
	if cfg.Cache.LockDir != filepath.Join(wantCache, "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.Cache.LockDir)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.Cache.MaxSize != 100 {
		t.Fatalf("unexpected max size: %d", cfg.Cache.MaxSize)
	}
	if cfg.CacheTTL() != time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.CacheTTL())
	}
	if cfg.Cache.CrossProcessLock {
		t.Fatal("expected cross-process lock disabled by default")
	}
	if cfg.Jobs.Path != filepath.Join(wantState, "jobs.db") {
		t.Fatalf("unexpected jobs path: %q", cfg.Jobs.Path)
	}
	if cfg.API.Bind != "127.0.0.1:8000" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.API.Token != "" {
		t.Fatalf("expected empty token, got %q", cfg.API.Token)
	}
	if cfg.Recognition.Engine != "text" {
		t.Fatalf("unexpected engine: %q", cfg.Recognition.Engine)
	}
	if cfg.MaxFileSizeBytes() != 50*1024*1024 {
		t.Fatalf("unexpected max file size: %d", cfg.MaxFileSizeBytes())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Cache.Dir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestEnsureDirectoriesSkipsDisabledCache(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Cache.Dir = filepath.Join(base, "cache")
	cfg.Cache.Enabled = false

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.Cache.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected disabled cache dir to be absent, stat err=%v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ocrcache.toml")

	type payload struct {
		Cache struct {
			Dir        string `toml:"dir"`
			MaxSize    int    `toml:"max_size"`
			TTLSeconds int    `toml:"ttl_seconds"`
		} `toml:"cache"`
		Recognition struct {
			Engine    string   `toml:"engine"`
			Languages []string `toml:"languages"`
		} `toml:"recognition"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Cache.Dir = filepath.Join(tempDir, "results")
	custom.Cache.MaxSize = 3
	custom.Cache.TTLSeconds = 60
	custom.Recognition.Engine = " Tesseract "
	custom.Recognition.Languages = []string{"eng", " eng", "deu", ""}
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Cache.Dir != custom.Cache.Dir {
		t.Fatalf("expected cache dir from file, got %q", cfg.Cache.Dir)
	}
	if cfg.Cache.MaxSize != 3 || cfg.Cache.TTLSeconds != 60 {
		t.Fatalf("unexpected cache limits: %+v", cfg.Cache)
	}
	if cfg.Recognition.Engine != "tesseract" {
		t.Fatalf("expected normalized engine, got %q", cfg.Recognition.Engine)
	}
	if strings.Join(cfg.Recognition.Languages, ",") != "eng,deu" {
		t.Fatalf("expected deduplicated languages, got %v", cfg.Recognition.Languages)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadMissingCustomPathUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists to be false")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Cache.MaxSize != config.Default().Cache.MaxSize {
		t.Fatalf("expected default max size, got %d", cfg.Cache.MaxSize)
	}
}

func TestAPITokenFallsBackToEnv(t *testing.T) {
	t.Setenv("OCRCACHE_API_TOKEN", " env-token ")
	path := filepath.Join(t.TempDir(), "ocrcache.toml")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.API.Token)
	}

	if err := os.WriteFile(path, []byte("[api]\ntoken = \"file-token\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Token != "file-token" {
		t.Fatalf("expected file token to win, got %q", cfg.API.Token)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[cache\nmax_size = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected sample to enable the cache")
	}
	if cfg.Cache.MaxSize != 100 || cfg.Cache.TTLSeconds != 3600 {
		t.Fatalf("unexpected sample cache limits: %+v", cfg.Cache)
	}
	if !strings.Contains(cfg.Paths.StateDir, "ocrcache") {
		t.Fatalf("expected state dir to contain ocrcache, got %q", cfg.Paths.StateDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero max size", func(c *config.Config) { c.Cache.MaxSize = 0 }},
		{"negative ttl", func(c *config.Config) { c.Cache.TTLSeconds = -1 }},
		{"enabled without dir", func(c *config.Config) { c.Cache.Dir = "" }},
		{"lock without dir", func(c *config.Config) {
			c.Cache.CrossProcessLock = true
			c.Cache.LockDir = ""
		}},
		{"unknown engine", func(c *config.Config) { c.Recognition.Engine = "paddle" }},
		{"threshold above one", func(c *config.Config) { c.Recognition.TableConfThreshold = 1.5 }},
		{"threshold not a number", func(c *config.Config) { c.Recognition.TableConfThreshold = math.NaN() }},
		{"zero dpi", func(c *config.Config) { c.Recognition.DPI = 0 }},
		{"bad bind", func(c *config.Config) { c.API.Bind = "localhost" }},
		{"negative rate", func(c *config.Config) { c.API.RateLimitPerSecond = -1 }},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"jobs without path", func(c *config.Config) {
			c.Jobs.Enabled = true
			c.Jobs.Path = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Jobs.Path = "/tmp/jobs.db"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Jobs.Path = "/tmp/jobs.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
