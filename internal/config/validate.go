package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCache() error {
	if err := ensurePositiveMap(map[string]int{
		"cache.max_size":    c.Cache.MaxSize,
		"cache.ttl_seconds": c.Cache.TTLSeconds,
	}); err != nil {
		return err
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set when cache.enabled is true")
	}
	if c.Cache.CrossProcessLock && strings.TrimSpace(c.Cache.LockDir) == "" {
		return errors.New("cache.lock_dir must be set when cache.cross_process_lock is true")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	switch c.Recognition.Engine {
	case "text", "tesseract":
	default:
		return fmt.Errorf("recognition.engine %q is not supported (valid: %s)", c.Recognition.Engine, supportedEngineDescriptions)
	}
	if len(c.Recognition.Languages) == 0 {
		return errors.New("recognition.languages must include at least one language")
	}
	if !(c.Recognition.TableConfThreshold >= 0 && c.Recognition.TableConfThreshold <= 1) {
		return errors.New("recognition.table_conf_threshold must be between 0 and 1")
	}
	return ensurePositiveMap(map[string]int{
		"recognition.dpi":              c.Recognition.DPI,
		"recognition.max_file_size_mb": c.Recognition.MaxFileSizeMB,
	})
}

func (c *Config) validateJobs() error {
	if c.Jobs.Enabled && strings.TrimSpace(c.Jobs.Path) == "" {
		return errors.New("jobs.path must be set when jobs.enabled is true")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q must be host:port: %w", c.API.Bind, err)
	}
	if c.API.RateLimitPerSecond < 0 {
		return errors.New("api.rate_limit_per_second must be >= 0")
	}
	if c.API.RateLimitBurst < 0 {
		return errors.New("api.rate_limit_burst must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported (valid: debug, info, warn, error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
