package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"ocrcache/internal/config"
	"ocrcache/internal/daemon"
	"ocrcache/internal/logging"
	"ocrcache/internal/preflight"
	"ocrcache/internal/recognition"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Version     string
}

// Run starts the OCR daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg, logging.Options{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String("run_id", runID))

	logConfigSnapshot(logger, cfg)
	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Hint("fix the reported path or engine setting in the config file"),
			logging.Impact("requests depending on this check will fail"))
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "ocrcached.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger, opts.Version)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("ocrcached shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
		logging.String("cache_dir", cfg.Cache.Dir),
		logging.Int("cache_max_size", cfg.Cache.MaxSize),
		logging.Int("cache_ttl_seconds", cfg.Cache.TTLSeconds),
		logging.Bool("cross_process_lock", cfg.Cache.CrossProcessLock),
		logging.String("engine", cfg.Recognition.Engine),
		logging.Any("engines_available", recognition.Names()),
		logging.Bool("jobs_enabled", cfg.Jobs.Enabled),
		logging.String("api_bind", cfg.API.Bind),
		logging.Bool("api_token_present", cfg.API.Token != ""),
	)
}
