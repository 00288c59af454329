// Package daemon coordinates the long-running OCR process.
//
// It owns the result cache, the job history store, the recognition runner and
// the HTTP server as a single lifecycle, with a flock-based lock that keeps a
// second daemon from serving the same state directory. The cache is built
// once here and handed to its consumers explicitly.
package daemon
