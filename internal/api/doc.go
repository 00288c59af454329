// Package api serves the HTTP interface of the OCR daemon.
//
// # Routes
//
// GET /health reports liveness and which services are enabled. It is the only
// route exempt from bearer authentication.
//
// POST /ocr/process accepts a multipart upload in the "file" field and
// recognition options as query parameters (lang, engine, use_angle_cls,
// detect_tables, table_conf_threshold, dpi, use_cache). It is rate limited.
//
// GET /cache/stats, POST /cache/clear, GET /cache/entries and
// DELETE /cache/entries/{key} inspect and manage the result cache.
//
// GET /jobs, GET /jobs/{id} and GET /jobs/stats read the job history.
//
// # Conventions
//
// Responses are JSON with snake_case keys. Errors use {"error": "..."}. Every
// response carries an X-Request-ID header; a client-supplied value is echoed.
package api
