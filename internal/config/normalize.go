package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeRecognition()
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.LockDir) == "" {
		c.Cache.LockDir = filepath.Join(c.Cache.Dir, cacheLockDirName)
	}
	if c.Cache.LockDir, err = expandPath(c.Cache.LockDir); err != nil {
		return fmt.Errorf("cache.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecognition() {
	c.Recognition.Engine = strings.ToLower(strings.TrimSpace(c.Recognition.Engine))
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = defaultRecognitionEngine
	}
	langs := make([]string, 0, len(c.Recognition.Languages))
	seen := make(map[string]struct{}, len(c.Recognition.Languages))
	for _, lang := range c.Recognition.Languages {
		normalized := strings.TrimSpace(lang)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{defaultRecognitionLanguage}
	}
	c.Recognition.Languages = langs
	if c.Recognition.DPI <= 0 {
		c.Recognition.DPI = defaultRecognitionDPI
	}
	if c.Recognition.MaxFileSizeMB <= 0 {
		c.Recognition.MaxFileSizeMB = defaultMaxFileSizeMB
	}
}

func (c *Config) normalizeJobs() error {
	var err error
	if strings.TrimSpace(c.Jobs.Path) == "" {
		c.Jobs.Path = filepath.Join(c.Paths.StateDir, defaultJobsFile)
	}
	if c.Jobs.Path, err = expandPath(c.Jobs.Path); err != nil {
		return fmt.Errorf("jobs.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv(apiTokenEnv); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if c.API.RateLimitBurst <= 0 && c.API.RateLimitPerSecond > 0 {
		c.API.RateLimitBurst = defaultRateLimitBurst
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
