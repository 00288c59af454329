// Package logs reads the daemon log file for the CLI.
//
// LastLines returns the trailing lines with bounded memory, ReadFrom resumes
// from a byte offset and Follow polls for appended lines until its context is
// canceled. Only newline-terminated lines are returned, so a line the daemon
// is still writing is picked up whole on the next read.
package logs
