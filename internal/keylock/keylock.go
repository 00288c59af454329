// Package keylock gives callers at-most-once computation per cache key.
//
// Concurrent callers inside one process are coalesced with singleflight: the
// first caller runs the function and the rest receive its result. When
// cross-process locking is enabled the runner additionally holds an advisory
// flock on <dir>/<key>.lock, so several processes sharing a cache directory
// serialize their work on the same key. Callers are expected to re-check the
// cache once the lock is held.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"ocrcache/internal/logging"
)

const defaultRetryDelay = 50 * time.Millisecond

// ErrInvalidKey reports a key that cannot name a lock file.
var ErrInvalidKey = errors.New("invalid lock key")

// Options configures a Locker.
type Options struct {
	// Dir holds lock files. Required when CrossProcess is set.
	Dir          string
	CrossProcess bool
	// RetryDelay is the poll interval while waiting for a file lock.
	RetryDelay time.Duration
}

// Locker serializes work per key.
type Locker struct {
	group        singleflight.Group
	dir          string
	crossProcess bool
	retryDelay   time.Duration
	logger       *slog.Logger
}

// New builds a Locker. Cross-process locking silently degrades to
// in-process coalescing when Dir is empty.
func New(opts Options, logger *slog.Logger) *Locker {
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = defaultRetryDelay
	}
	return &Locker{
		dir:          opts.Dir,
		crossProcess: opts.CrossProcess && opts.Dir != "",
		retryDelay:   retry,
		logger:       logging.NewComponentLogger(logger, "keylock"),
	}
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result came from another caller's run. Waiting callers return early
// with ctx.Err() when their context ends. The shared run uses a context
// detached from the first caller's cancellation so one departing caller
// cannot fail the others; it still carries that caller's values.
func (l *Locker) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (v any, shared bool, err error) {
	if !validKey(key) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if l == nil {
		v, err := fn(ctx)
		return v, false, err
	}

	runCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		return l.runLocked(runCtx, key, fn)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (l *Locker) runLocked(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if !l.crossProcess {
		return fn(ctx)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(l.dir, key+".lock"))
	start := time.Now()
	locked, err := lock.TryLockContext(ctx, l.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire key lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire key lock: %s not acquired", key)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Debug("failed to release key lock",
				logging.CacheKey(key),
				logging.Error(err))
		}
	}()
	if waited := time.Since(start); waited > l.retryDelay {
		l.logger.Debug("waited for key lock",
			logging.CacheKey(key),
			logging.Duration("waited", waited))
	}
	return fn(ctx)
}

// validKey restricts keys to characters safe in a file name.
func validKey(key string) bool {
	if key == "" || len(key) > 128 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
