package api

import (
	"ocrcache/internal/jobs"
	"ocrcache/internal/recognition"
	"ocrcache/internal/resultcache"
)

// timestampFormat is used for RFC3339 timestamps in API payloads.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// OCRResponse is the result of POST /ocr/process.
type OCRResponse struct {
	Success           bool               `json:"success"`
	ProcessingTime    float64            `json:"processing_time"`
	TotalPages        int                `json:"total_pages"`
	TotalTextBlocks   int                `json:"total_text_blocks"`
	TotalCharacters   int                `json:"total_characters"`
	AverageConfidence float64            `json:"average_confidence"`
	Results           []recognition.Page `json:"results"`
	Cached            bool               `json:"cached"`
	Engine            string             `json:"engine"`
	CacheKey          string             `json:"cache_key"`
	JobID             string             `json:"job_id,omitempty"`
}

// ClearResponse acknowledges POST /cache/clear.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CacheEntriesResponse lists cache entries most recently used first.
type CacheEntriesResponse struct {
	Entries []resultcache.EntryInfo `json:"entries"`
}

// DeleteResponse acknowledges DELETE /cache/entries/{key}.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

// JobsResponse lists recent jobs newest first.
type JobsResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newOCRResponse(out recognition.Outcome) OCRResponse {
	stats := out.Result.Statistics
	pages := out.Result.Pages
	if pages == nil {
		pages = []recognition.Page{}
	}
	return OCRResponse{
		Success:           true,
		ProcessingTime:    out.Elapsed.Seconds(),
		TotalPages:        stats.TotalPages,
		TotalTextBlocks:   stats.TotalTextBlocks,
		TotalCharacters:   stats.TotalCharacters,
		AverageConfidence: stats.AverageConfidence,
		Results:           pages,
		Cached:            out.Cached,
		Engine:            out.Result.Engine,
		CacheKey:          out.CacheKey,
		JobID:             out.JobID,
	}
}
