package jobs

import (
	"errors"
	"time"
)

// ErrNotFound reports an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Status represents the lifecycle of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one recorded recognition request.
type Job struct {
	ID                string         `json:"job_id"`
	Filename          string         `json:"filename"`
	FileHash          string         `json:"file_hash"`
	FileSize          int64          `json:"file_size"`
	Engine            string         `json:"engine"`
	Language          string         `json:"language"`
	Config            map[string]any `json:"config,omitempty"`
	CacheKey          string         `json:"cache_key,omitempty"`
	RequestID         string         `json:"request_id,omitempty"`
	Status            Status         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	ProcessingSeconds float64        `json:"processing_time"`
	TotalPages        int            `json:"total_pages"`
	TotalTextBlocks   int            `json:"total_text_blocks"`
	TotalCharacters   int            `json:"total_characters"`
	AverageConfidence float64        `json:"average_confidence"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Cached            bool           `json:"cached"`
}

// Completion carries the outcome of a successful job.
type Completion struct {
	TotalPages        int
	TotalTextBlocks   int
	TotalCharacters   int
	AverageConfidence float64
	Cached            bool
	Elapsed           time.Duration
}

// Statistics summarizes jobs created within a trailing window.
type Statistics struct {
	PeriodDays            int     `json:"period_days"`
	TotalJobs             int     `json:"total_jobs"`
	SuccessfulJobs        int     `json:"successful_jobs"`
	FailedJobs            int     `json:"failed_jobs"`
	CachedJobs            int     `json:"cached_jobs"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	TotalPages            int     `json:"total_pages"`
	SuccessRate           float64 `json:"success_rate"`
}
