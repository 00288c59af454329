// Package recognition runs OCR engines behind the result cache.
//
// Engines register themselves by name. The Runner validates an uploaded file,
// fingerprints it, consults the cache and, on a miss, computes the result
// under a per-key lock so concurrent requests for the same file and settings
// share one recognition pass. Every request is recorded in the job history
// when a recorder is configured.
package recognition
