package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 500
)

// Create records a new job in the processing state. An empty ID is replaced
// with a random UUID. The stored row is returned.
func (s *Store) Create(ctx context.Context, job Job) (*Job, error) {
	if strings.TrimSpace(job.Filename) == "" {
		return nil, errors.New("job filename is required")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now()

	var configJSON any
	if len(job.Config) > 0 {
		data, err := json.Marshal(job.Config)
		if err != nil {
			return nil, fmt.Errorf("marshal job config: %w", err)
		}
		configJSON = string(data)
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO ocr_jobs (
            job_id, filename, file_hash, file_size, engine, language,
            config_json, cache_key, request_id, status, created_at, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Filename,
		nullableString(job.FileHash),
		job.FileSize,
		nullableString(job.Engine),
		nullableString(job.Language),
		configJSON,
		nullableString(job.CacheKey),
		nullableString(job.RequestID),
		StatusProcessing,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, job.ID)
}

// Complete marks a job as completed with its result summary.
func (s *Store) Complete(ctx context.Context, id string, c Completion) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ocr_jobs SET
            status = ?, completed_at = ?, processing_time = ?,
            total_pages = ?, total_text_blocks = ?, total_characters = ?,
            average_confidence = ?, cached = ?, error_message = NULL
        WHERE job_id = ?`,
		StatusCompleted,
		formatTime(s.now()),
		c.Elapsed.Seconds(),
		c.TotalPages,
		c.TotalTextBlocks,
		c.TotalCharacters,
		c.AverageConfidence,
		boolToInt(c.Cached),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireRow(res, id)
}

// Fail marks a job as failed.
func (s *Store) Fail(ctx context.Context, id, message string, elapsed time.Duration) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE ocr_jobs SET status = ?, completed_at = ?, processing_time = ?, error_message = ?
        WHERE job_id = ?`,
		StatusFailed,
		formatTime(s.now()),
		elapsed.Seconds(),
		nullableString(message),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireRow(res, id)
}

// Get fetches a job by ID.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM ocr_jobs WHERE job_id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Recent returns the newest jobs first. A non-positive limit uses the default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Job, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM ocr_jobs ORDER BY created_at DESC, job_id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// Statistics summarizes jobs created within the last days days.
func (s *Store) Statistics(ctx context.Context, days int) (Statistics, error) {
	ctx = ensureContext(ctx)
	if days <= 0 {
		days = 7
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	stats := Statistics{PeriodDays: days}
	var (
		successful sql.NullInt64
		failed     sql.NullInt64
		cached     sql.NullInt64
		avgTime    sql.NullFloat64
		pages      sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
            SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
            SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
            SUM(cached),
            AVG(NULLIF(processing_time, 0)),
            SUM(COALESCE(total_pages, 0))
        FROM ocr_jobs WHERE created_at >= ?`,
		StatusCompleted, StatusFailed, formatTime(cutoff),
	).Scan(&stats.TotalJobs, &successful, &failed, &cached, &avgTime, &pages)
	if err != nil {
		return Statistics{}, fmt.Errorf("job statistics: %w", err)
	}
	stats.SuccessfulJobs = int(successful.Int64)
	stats.FailedJobs = int(failed.Int64)
	stats.CachedJobs = int(cached.Int64)
	stats.AverageProcessingTime = avgTime.Float64
	stats.TotalPages = int(pages.Int64)
	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.SuccessfulJobs) / float64(stats.TotalJobs) * 100
	}
	return stats, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
