package logging

import (
	"context"
	"log/slog"
	"time"
)

// Keys shared by every component.
const (
	FieldComponent = "component"
	// FieldEventType names the kind of event a WARN or ERROR line describes.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the consequence of a warning for the caller.
	FieldImpact = "impact"
	// FieldDecisionType labels decision lines (cache_lookup, cache_eviction).
	FieldDecisionType  = "decision_type"
	FieldCorrelationID = "correlation_id"
)

// Keys that identify the cached work a line is about.
const (
	FieldCacheKey        = "cache_key"
	FieldFileFingerprint = "file_fingerprint"
	FieldJobID           = "job_id"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// CacheKey tags a line with the derived result cache key.
func CacheKey(key string) Attr { return slog.String(FieldCacheKey, key) }

// FileFingerprint tags a line with the content hash of an input file.
func FileFingerprint(fp string) Attr { return slog.String(FieldFileFingerprint, fp) }

// JobID tags a line with the job history identifier.
func JobID(id string) Attr { return slog.String(FieldJobID, id) }

func Hint(hint string) Attr { return slog.String(FieldErrorHint, hint) }

func Impact(impact string) Attr { return slog.String(FieldImpact, impact) }

// Decision returns slog arguments for a decision line: cache hits and misses,
// evictions and bypasses all log type, result and reason under fixed keys.
func Decision(decisionType, result, reason string, attrs ...Attr) []any {
	args := make([]any, 0, 3+len(attrs))
	args = append(args,
		slog.String(FieldDecisionType, decisionType),
		slog.String("decision_result", result),
		slog.String("decision_reason", reason),
	)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Missing hint and impact get generic defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	var hasEvent, hasHint, hasImpact bool
	args := make([]any, 0, len(attrs)+3)
	for _, attr := range attrs {
		switch attr.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case FieldImpact:
			hasImpact = true
		}
		args = append(args, attr)
	}
	if !hasEvent {
		args = append(args, String(FieldEventType, eventType))
	}
	if !hasHint {
		args = append(args, Hint("check logs for details"))
	}
	if !hasImpact {
		args = append(args, Impact("operation completed with warnings"))
	}
	logger.Warn(msg, args...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (discardHandler) WithAttrs([]slog.Attr) slog.Handler { return discardHandler{} }

func (discardHandler) WithGroup(string) slog.Handler { return discardHandler{} }
