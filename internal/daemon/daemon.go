package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"ocrcache/internal/api"
	"ocrcache/internal/config"
	"ocrcache/internal/jobs"
	"ocrcache/internal/keylock"
	"ocrcache/internal/logging"
	"ocrcache/internal/preflight"
	"ocrcache/internal/recognition"
	"ocrcache/internal/resultcache"
)

// ErrAlreadyRunning reports that another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("another ocrcached instance is already running")

// Daemon wires the OCR services together.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	version string

	cache  *resultcache.Cache
	jobs   *jobs.Store
	runner *recognition.Runner
	server *api.Server

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	closed  bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Address      string             `json:"address,omitempty"`
	LockFilePath string             `json:"lock_file_path"`
	JobsDBPath   string             `json:"jobs_db_path,omitempty"`
	Cache        resultcache.Stats  `json:"cache"`
	Preflight    []preflight.Result `json:"preflight"`
}

// New takes the single-instance lock, then opens the job history when enabled
// and loads the cache index. Loading may prune expired entries, so nothing
// touches the cache directory until the lock is held. The HTTP listener is
// not opened until Start.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.DaemonLockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	cache := resultcache.New(resultcache.OptionsFromConfig(cfg), logger)

	var (
		store    *jobs.Store
		recorder recognition.JobRecorder
	)
	if cfg.Jobs.Enabled {
		store, err = jobs.Open(cfg.Jobs.Path)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("open job history: %w", err)
		}
		recorder = store
	}

	locker := keylock.New(keylock.Options{
		Dir:          cfg.Cache.LockDir,
		CrossProcess: cfg.Cache.CrossProcessLock,
	}, logger)
	runner := recognition.NewRunner(cache, locker, recorder, recognition.RunnerOptions{
		MaxFileSize: cfg.MaxFileSizeBytes(),
	}, logger)

	server := api.NewServer(cfg, api.Dependencies{
		Cache:   cache,
		Runner:  runner,
		Jobs:    store,
		Version: version,
	}, logger)

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		version:  version,
		cache:    cache,
		jobs:     store,
		runner:   runner,
		server:   server,
		lockPath: lockPath,
		lock:     lock,
	}, nil
}

// Start starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("daemon closed")
	}
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	serveCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(serveCtx); err != nil {
		cancel()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("ocrcached started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
		logging.Bool("cache_enabled", d.cache.Enabled()),
		logging.Bool("jobs_enabled", d.jobs != nil),
	)
	return nil
}

// Stop stops serving. The instance lock stays held until Close.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.running.Store(false)
	d.logger.Info("ocrcached stopped")
}

// Close stops the daemon, closes the job history and releases the instance
// lock. It is safe to call more than once.
func (d *Daemon) Close() error {
	d.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.jobs != nil {
		err = d.jobs.Close()
	}
	if unlockErr := d.lock.Unlock(); unlockErr != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(unlockErr),
			logging.Hint("remove "+d.lockPath+" if no daemon is running"))
	}
	return err
}

// Status reports runtime state, cache statistics and preflight results.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Cache:        d.cache.Stats(),
		Preflight:    preflight.RunAll(ctx, d.cfg),
	}
	if status.Running {
		status.Address = d.server.Addr()
	}
	if d.jobs != nil {
		status.JobsDBPath = d.jobs.Path()
	}
	return status
}

// Cache exposes the shared result cache.
func (d *Daemon) Cache() *resultcache.Cache { return d.cache }

// Runner exposes the recognition runner.
func (d *Daemon) Runner() *recognition.Runner { return d.runner }
