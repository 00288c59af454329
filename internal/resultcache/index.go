package resultcache

import (
	"container/list"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"ocrcache/internal/fileutil"
)

const (
	indexFileName = "index.json"
	indexVersion  = 1
)

// record is the persisted metadata of one cache entry.
type record struct {
	Key               string            `json:"key"`
	CreatedAt         time.Time         `json:"created_at"`
	FileFingerprint   string            `json:"file_fingerprint"`
	ConfigFingerprint string            `json:"config_fingerprint"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// indexFile is the on-disk layout. Entries run from least to most recently
// used.
type indexFile struct {
	Version int      `json:"version"`
	Entries []record `json:"entries"`
}

// index keeps records in recency order: front is least recently used, back
// is most recently used.
type index struct {
	order *list.List
	items map[string]*list.Element
}

func newIndex() *index {
	return &index{order: list.New(), items: make(map[string]*list.Element)}
}

func (ix *index) len() int { return len(ix.items) }

func (ix *index) get(key string) (*record, bool) {
	el, ok := ix.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*record), true
}

// put inserts rec as most recently used, replacing any record with the same key.
func (ix *index) put(rec *record) {
	if el, ok := ix.items[rec.Key]; ok {
		ix.order.Remove(el)
	}
	ix.items[rec.Key] = ix.order.PushBack(rec)
}

func (ix *index) touch(key string) {
	if el, ok := ix.items[key]; ok {
		ix.order.MoveToBack(el)
	}
}

func (ix *index) remove(key string) (*record, bool) {
	el, ok := ix.items[key]
	if !ok {
		return nil, false
	}
	ix.order.Remove(el)
	delete(ix.items, key)
	return el.Value.(*record), true
}

// oldest returns the least recently used record.
func (ix *index) oldest() (*record, bool) {
	el := ix.order.Front()
	if el == nil {
		return nil, false
	}
	return el.Value.(*record), true
}

func (ix *index) reset() {
	ix.order.Init()
	ix.items = make(map[string]*list.Element)
}

// records returns copies in least-to-most recently used order.
func (ix *index) records() []record {
	out := make([]record, 0, ix.len())
	for el := ix.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*record))
	}
	return out
}

func readIndexFile(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if file.Version != indexVersion {
		return nil, fmt.Errorf("parse index: unsupported version %d", file.Version)
	}
	return file.Entries, nil
}

func writeIndexFile(path string, records []record) error {
	data, err := json.MarshalIndent(indexFile{Version: indexVersion, Entries: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
