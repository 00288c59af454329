package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Cache contains configuration for the recognition result cache.
type Cache struct {
	Enabled    bool   `toml:"enabled"`
	Dir        string `toml:"dir"`
	MaxSize    int    `toml:"max_size"`
	TTLSeconds int    `toml:"ttl_seconds"`
	// LockDir holds per-key advisory lock files when CrossProcessLock is set.
	// Defaults to <dir>/locks.
	LockDir          string `toml:"lock_dir"`
	CrossProcessLock bool   `toml:"cross_process_lock"`
}

// Recognition contains OCR engine settings. These values feed the cache key,
// so changing any of them produces a fresh set of entries.
type Recognition struct {
	Engine             string   `toml:"engine"`
	Languages          []string `toml:"languages"`
	DPI                int      `toml:"dpi"`
	UseAngleCls        bool     `toml:"use_angle_cls"`
	DetectTables       bool     `toml:"detect_tables"`
	TableConfThreshold float64  `toml:"table_conf_threshold"`
	MaxFileSizeMB      int      `toml:"max_file_size_mb"`
}

// Jobs contains configuration for the job history database.
type Jobs struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// API contains configuration for the HTTP server.
type API struct {
	Bind               string  `toml:"bind"`
	Token              string  `toml:"token"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
	RateLimitBurst     int     `toml:"rate_limit_burst"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ocrcache.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Cache: result cache location, capacity and TTL
//   - Recognition: engine selection and recognition options
//   - Jobs: job history database
//   - API: HTTP bind address, token and rate limit
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Cache       Cache       `toml:"cache"`
	Recognition Recognition `toml:"recognition"`
	Jobs        Jobs        `toml:"jobs"`
	API         API         `toml:"api"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ocrcache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The cache directory is only created when the cache is enabled; a disabled
// cache must not touch storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) != "" {
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Dir, err)
		}
		if c.Cache.CrossProcessLock && strings.TrimSpace(c.Cache.LockDir) != "" {
			if err := os.MkdirAll(c.Cache.LockDir, 0o755); err != nil {
				return fmt.Errorf("create lock directory %q: %w", c.Cache.LockDir, err)
			}
		}
	}
	return nil
}

// CacheTTL returns the configured entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Recognition.MaxFileSizeMB) * 1024 * 1024
}

// DaemonLockPath returns the single-instance lock file for the daemon.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "ocrcached.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "ocrcache", "results")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/ocrcache/results"
	}
	return filepath.Join(home, ".cache", "ocrcache", "results")
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
