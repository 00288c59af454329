package resultcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ocrcache/internal/fileutil"
)

const (
	payloadDirName = "payloads"
	payloadExt     = ".json"
)

// payloadStore keeps one JSON blob per key. File names derive from the key
// alone so the index and the store always agree on addressing.
type payloadStore struct {
	dir string
}

func (s payloadStore) path(key string) string {
	return filepath.Join(s.dir, key+payloadExt)
}

func (s payloadStore) ensureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

func (s payloadStore) write(key string, data []byte) error {
	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("create payload dir: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path(key), data, 0o644)
}

// read returns fs.ErrNotExist (wrapped) when the blob is missing.
func (s payloadStore) read(key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

func (s payloadStore) remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s payloadStore) size(key string) int64 {
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0
	}
	return info.Size()
}

// totalSize sums every blob on disk, orphans included.
func (s payloadStore) totalSize() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), payloadExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// clear removes every file in the payload directory, including orphans and
// leftover temp files. It returns the first error after attempting all files.
func (s payloadStore) clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
