package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// LastLines returns up to limit trailing lines of path and the offset just
// past the last complete line. A missing file yields no lines and offset 0.
func LastLines(path string, limit int) ([]string, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		_, offset, err := scanLines(file, 0, func(string) {})
		return nil, offset, err
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	_, offset, err := scanLines(file, 0, func(line string) {
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// ReadFrom returns the complete lines after offset and the new offset. When
// the file shrank below offset it was truncated or replaced, and reading
// restarts from the beginning.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}

	var lines []string
	_, next, err := scanLines(file, offset, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, offset, err
	}
	return lines, next, nil
}

// Follow polls path every interval starting at offset and calls emit for each
// new line. It returns nil when ctx is canceled.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lines, next, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

// scanLines feeds complete lines starting at offset to fn and returns the
// line count and the offset after the last newline.
func scanLines(file *os.File, offset int64, fn func(string)) (int, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	count := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, offset, nil
			}
			return count, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(line)
		count++
	}
}
