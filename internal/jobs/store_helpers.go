package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const jobColumns = "job_id, filename, file_hash, file_size, engine, language, config_json, cache_key, request_id, status, created_at, started_at, completed_at, processing_time, total_pages, total_text_blocks, total_characters, average_confidence, error_message, cached"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id             string
		filename       string
		fileHash       sql.NullString
		fileSize       sql.NullInt64
		engine         sql.NullString
		language       sql.NullString
		configJSON     sql.NullString
		cacheKey       sql.NullString
		requestID      sql.NullString
		statusStr      string
		createdRaw     sql.NullString
		startedRaw     sql.NullString
		completedRaw   sql.NullString
		processingTime sql.NullFloat64
		totalPages     sql.NullInt64
		totalBlocks    sql.NullInt64
		totalChars     sql.NullInt64
		avgConfidence  sql.NullFloat64
		errorMessage   sql.NullString
		cached         sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&filename,
		&fileHash,
		&fileSize,
		&engine,
		&language,
		&configJSON,
		&cacheKey,
		&requestID,
		&statusStr,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&processingTime,
		&totalPages,
		&totalBlocks,
		&totalChars,
		&avgConfidence,
		&errorMessage,
		&cached,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                id,
		Filename:          filename,
		FileHash:          fileHash.String,
		FileSize:          fileSize.Int64,
		Engine:            engine.String,
		Language:          language.String,
		CacheKey:          cacheKey.String,
		RequestID:         requestID.String,
		Status:            Status(statusStr),
		ProcessingSeconds: processingTime.Float64,
		TotalPages:        int(totalPages.Int64),
		TotalTextBlocks:   int(totalBlocks.Int64),
		TotalCharacters:   int(totalChars.Int64),
		AverageConfidence: avgConfidence.Float64,
		ErrorMessage:      errorMessage.String,
		Cached:            cached.Int64 != 0,
	}
	if configJSON.Valid && configJSON.String != "" {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(configJSON.String), &cfg); err == nil {
			job.Config = cfg
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
