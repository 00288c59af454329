package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ocrcache/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocrcached.log")
	writeLog(t, path, "a\nb\nc\npartial")

	lines, offset, err := logs.LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset to stop before partial line, got %d", offset)
	}

	lines, _, err = logs.LastLines(path, 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected all complete lines, got %#v", lines)
	}
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := logs.LastLines(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestReadFromResumesAndHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocrcached.log")
	writeLog(t, path, "one\n")
	_, offset, err := logs.LastLines(path, 1)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	appendLog(t, path, "two\nthr")
	lines, offset, err := logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "two" {
		t.Fatalf("unexpected lines: %#v", lines)
	}

	appendLog(t, path, "ee\n")
	lines, offset, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "three" {
		t.Fatalf("expected completed line, got %#v", lines)
	}

	writeLog(t, path, "new\n")
	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom after truncate: %v", err)
	}
	if len(lines) != 1 || lines[0] != "new" {
		t.Fatalf("expected restart after truncation, got %#v", lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocrcached.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.LastLines(path, 0)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	appendLog(t, path, "later\n")
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected followed lines: %#v", got)
	}
}
