// Package preflight verifies that the daemon's directories are usable and
// that the configured recognition engine is available before serving. The
// daemon logs each result at startup and the doctor command prints them.
package preflight
