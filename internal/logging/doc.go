// Package logging assembles structured slog loggers and attribute helpers used
// across ocrcache.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so HTTP handlers and the
// recognition runner can tag log lines with request and job identifiers. A
// no-op logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field shape (component, event_type, error_hint, impact).
package logging
