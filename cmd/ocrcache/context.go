package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ocrcache/internal/config"
	"ocrcache/internal/jobs"
	"ocrcache/internal/logging"
	"ocrcache/internal/resultcache"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	cacheOnce sync.Once
	cache     *resultcache.Cache
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger writes warnings and errors to the command's stderr so cache
// self-healing stays visible without cluttering normal output.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, _ := c.ensureConfig()
	format := "console"
	if cfg != nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: format, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) resultCache(cmd *cobra.Command) (*resultcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.cacheOnce.Do(func() {
		c.cache = resultcache.New(resultcache.OptionsFromConfig(cfg), c.logger(cmd))
	})
	return c.cache, nil
}

// openJobs returns nil without error when job history is disabled.
func (c *commandContext) openJobs() (*jobs.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Jobs.Enabled {
		return nil, nil
	}
	store, err := jobs.Open(cfg.Jobs.Path)
	if err != nil {
		return nil, fmt.Errorf("open job history: %w", err)
	}
	return store, nil
}

func (c *commandContext) requireJobs() (*jobs.Store, error) {
	store, err := c.openJobs()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("job history is disabled (set [jobs] enabled = true)")
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
