package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ocrcache/internal/fileutil"
	"ocrcache/internal/fingerprint"
	"ocrcache/internal/jobs"
	"ocrcache/internal/keylock"
	"ocrcache/internal/logging"
	"ocrcache/internal/resultcache"
)

// JobRecorder persists the request history. *jobs.Store satisfies it.
type JobRecorder interface {
	Create(ctx context.Context, job jobs.Job) (*jobs.Job, error)
	Complete(ctx context.Context, id string, c jobs.Completion) error
	Fail(ctx context.Context, id, message string, elapsed time.Duration) error
}

// RunnerOptions tunes a Runner.
type RunnerOptions struct {
	// MaxFileSize rejects larger inputs. Zero disables the limit.
	MaxFileSize int64
	Now         func() time.Time
}

// Request describes one file to recognize.
type Request struct {
	// Filename is the name reported by the client; Path is where the bytes are.
	Filename  string
	Path      string
	Settings  Settings
	UseCache  bool
	RequestID string
}

// Outcome is the result of Process together with how it was obtained.
type Outcome struct {
	Result          Result
	Cached          bool
	Shared          bool
	JobID           string
	CacheKey        string
	FileFingerprint string
	Elapsed         time.Duration
}

// Runner ties the engines to the result cache, the key locker and the job
// history. Any of cache, locker and recorder may be nil.
type Runner struct {
	cache    *resultcache.Cache
	locker   *keylock.Locker
	recorder JobRecorder
	opts     RunnerOptions
	logger   *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(cache *resultcache.Cache, locker *keylock.Locker, recorder JobRecorder, opts RunnerOptions, logger *slog.Logger) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		cache:    cache,
		locker:   locker,
		recorder: recorder,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "recognition"),
	}
}

type computed struct {
	result    Result
	fromCache bool
}

// Process recognizes the file at req.Path. With UseCache set, a cached result
// for the same content and settings is returned without running the engine,
// and a fresh result is stored afterwards.
func (r *Runner) Process(ctx context.Context, req Request) (Outcome, error) {
	start := r.opts.Now()
	name := req.Filename
	if name == "" {
		name = filepath.Base(req.Path)
	}
	name = fileutil.SanitizeFilename(name)

	settings := req.Settings.Normalize()
	if err := settings.Validate(); err != nil {
		return Outcome{}, err
	}
	format, err := FormatFromName(name)
	if err != nil {
		return Outcome{}, err
	}
	engine, err := Lookup(settings.Engine)
	if err != nil {
		return Outcome{}, err
	}
	if !engine.Supports(format) {
		return Outcome{}, fmt.Errorf("%w: engine %s cannot read %s files", ErrUnsupportedInput, engine.Name(), format)
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return Outcome{}, fmt.Errorf("stat input: %w", err)
	}
	if r.opts.MaxFileSize > 0 && info.Size() > r.opts.MaxFileSize {
		return Outcome{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, info.Size(), r.opts.MaxFileSize)
	}

	fp, err := fingerprint.File(req.Path)
	if err != nil {
		return Outcome{}, err
	}
	params := settings.Params()
	key, err := resultcache.DeriveKey(fp, params)
	if err != nil {
		return Outcome{}, err
	}

	logger := logging.WithContext(ctx, r.logger).With(
		logging.CacheKey(key),
		logging.FileFingerprint(fp),
	)
	out := Outcome{CacheKey: key, FileFingerprint: fp}
	out.JobID = r.startJob(ctx, logger, jobs.Job{
		Filename:  name,
		FileHash:  fp,
		FileSize:  info.Size(),
		Engine:    engine.Name(),
		Language:  settings.Language,
		Config:    params,
		CacheKey:  key,
		RequestID: req.RequestID,
	})
	if out.JobID != "" {
		logger = logger.With(logging.JobID(out.JobID))
	}

	compute := func(ctx context.Context) (any, error) {
		if req.UseCache {
			var cached Result
			if r.cache.Get(fp, params, &cached) {
				return computed{result: cached, fromCache: true}, nil
			}
		}
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		res, err := engine.Recognize(ctx, Input{Name: name, Format: format, Data: data, Settings: settings})
		if err != nil {
			return nil, fmt.Errorf("%s recognition: %w", engine.Name(), err)
		}
		res.Engine = engine.Name()
		res.Statistics = ComputeStatistics(res.Pages)
		if req.UseCache {
			r.cache.Put(fp, params, res, map[string]string{
				"filename": name,
				"engine":   engine.Name(),
			})
		}
		return computed{result: res}, nil
	}

	var (
		value  any
		shared bool
	)
	if req.UseCache {
		value, shared, err = r.locker.Do(ctx, key, compute)
	} else {
		logger.Debug("cache bypassed", logging.Decision("cache_lookup", "skip", "use_cache=false")...)
		value, err = compute(ctx)
	}
	out.Elapsed = r.opts.Now().Sub(start)
	if err != nil {
		r.failJob(logger, out.JobID, err, out.Elapsed)
		return out, err
	}

	res := value.(computed)
	out.Result = res.result
	out.Cached = res.fromCache
	out.Shared = shared
	r.completeJob(logger, out)

	logger.Info("recognition complete",
		logging.String("filename", name),
		logging.String("engine", engine.Name()),
		logging.Bool("cached", out.Cached),
		logging.Bool("shared", out.Shared),
		logging.Int("pages", out.Result.Statistics.TotalPages),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (r *Runner) startJob(ctx context.Context, logger *slog.Logger, job jobs.Job) string {
	if r.recorder == nil {
		return ""
	}
	created, err := r.recorder.Create(ctx, job)
	if err != nil {
		logging.WarnWithContext(logger, "job history unavailable", "job_record_failed",
			logging.Error(err),
			logging.Hint("check jobs.path permissions and disk space"),
			logging.Impact("request will not appear in job history"))
		return ""
	}
	return created.ID
}

func (r *Runner) completeJob(logger *slog.Logger, out Outcome) {
	if r.recorder == nil || out.JobID == "" {
		return
	}
	stats := out.Result.Statistics
	err := r.recorder.Complete(context.Background(), out.JobID, jobs.Completion{
		TotalPages:        stats.TotalPages,
		TotalTextBlocks:   stats.TotalTextBlocks,
		TotalCharacters:   stats.TotalCharacters,
		AverageConfidence: stats.AverageConfidence,
		Cached:            out.Cached,
		Elapsed:           out.Elapsed,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to complete job record", "job_record_failed",
			logging.Error(err),
			logging.Impact("job stays in processing state"))
	}
}

func (r *Runner) failJob(logger *slog.Logger, id string, cause error, elapsed time.Duration) {
	if r.recorder == nil || id == "" {
		return
	}
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "canceled"
	}
	if err := r.recorder.Fail(context.Background(), id, msg, elapsed); err != nil {
		logging.WarnWithContext(logger, "failed to record job failure", "job_record_failed",
			logging.Error(err),
			logging.Impact("job stays in processing state"))
	}
}
