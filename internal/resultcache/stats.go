package resultcache

import (
	"time"

	"golang.org/x/sys/unix"

	"ocrcache/internal/logging"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (free uint64, err error)

var freeBytes statfsFunc = realStatfs

func realStatfs(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// Stats describes current cache usage.
type Stats struct {
	Enabled       bool   `json:"enabled"`
	Items         int    `json:"items"`
	MaxSize       int    `json:"max_size"`
	TTLSeconds    int64  `json:"ttl"`
	TotalDiskSize int64  `json:"total_disk_size"`
	Location      string `json:"location"`
	FreeDiskBytes uint64 `json:"free_disk_bytes"`
}

// EntryInfo surfaces one entry for inspection tools.
type EntryInfo struct {
	Key               string            `json:"key"`
	CreatedAt         time.Time         `json:"created_at"`
	ExpiresAt         time.Time         `json:"expires_at"`
	Expired           bool              `json:"expired"`
	FileFingerprint   string            `json:"file_fingerprint"`
	ConfigFingerprint string            `json:"config_fingerprint"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	SizeBytes         int64             `json:"size_bytes"`
}

// Stats reports entry counts and disk usage. TotalDiskSize counts every
// payload file on disk, including orphans left by an unreadable index.
func (c *Cache) Stats() Stats {
	if !c.Enabled() {
		return Stats{Enabled: false}
	}

	c.mu.Lock()
	items := c.index.len()
	c.mu.Unlock()

	total, err := c.payloads.totalSize()
	if err != nil {
		c.logger.Debug("failed to measure cache payloads", logging.Error(err))
	}
	free, err := freeBytes(c.dir)
	if err != nil {
		c.logger.Debug("failed to read filesystem stats", logging.Error(err))
	}
	return Stats{
		Enabled:       true,
		Items:         items,
		MaxSize:       c.policy.maxSize,
		TTLSeconds:    int64(c.policy.ttl / time.Second),
		TotalDiskSize: total,
		Location:      c.dir,
		FreeDiskBytes: free,
	}
}

// List returns entries from most to least recently used. It does not change
// recency and does not purge expired entries.
func (c *Cache) List() []EntryInfo {
	if !c.Enabled() {
		return nil
	}

	c.mu.Lock()
	records := c.index.records()
	c.mu.Unlock()

	now := c.now()
	out := make([]EntryInfo, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		out = append(out, EntryInfo{
			Key:               rec.Key,
			CreatedAt:         rec.CreatedAt,
			ExpiresAt:         c.policy.expiresAt(rec.CreatedAt),
			Expired:           c.policy.expired(rec.CreatedAt, now),
			FileFingerprint:   rec.FileFingerprint,
			ConfigFingerprint: rec.ConfigFingerprint,
			Metadata:          cloneMetadata(rec.Metadata),
			SizeBytes:         c.payloads.size(rec.Key),
		})
	}
	return out
}
