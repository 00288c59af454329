package resultcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ocrcache/internal/config"
	"ocrcache/internal/logging"
)

// Options configures a Cache. All values are fixed at construction.
type Options struct {
	Enabled bool
	Dir     string
	MaxSize int
	TTL     time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// OptionsFromConfig maps the [cache] config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Enabled: cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Dir) != "",
		Dir:     cfg.Cache.Dir,
		MaxSize: cfg.Cache.MaxSize,
		TTL:     cfg.CacheTTL(),
	}
}

// Cache is a disk-backed LRU cache of recognition results with TTL expiry.
// A nil or disabled Cache is valid: lookups miss and writes do nothing.
type Cache struct {
	enabled   bool
	dir       string
	indexPath string
	payloads  payloadStore
	policy    policy
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	index *index
}

// New builds a cache and loads its persisted index once. A disabled cache
// never touches storage.
func New(opts Options, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "resultcache")
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		enabled: opts.Enabled && strings.TrimSpace(opts.Dir) != "",
		dir:     opts.Dir,
		policy:  newPolicy(opts.MaxSize, opts.TTL),
		now:     now,
		logger:  logger,
		index:   newIndex(),
	}
	if !c.enabled {
		logger.Debug("result cache disabled")
		return c
	}

	c.indexPath = filepath.Join(c.dir, indexFileName)
	c.payloads = payloadStore{dir: filepath.Join(c.dir, payloadDirName)}
	if err := c.payloads.ensureDir(); err != nil {
		logging.WarnWithContext(logger, "result cache directory unavailable", "cache_dir_unavailable",
			logging.String("dir", c.dir),
			logging.Error(err),
			logging.Hint("check permissions on cache.dir"),
			logging.Impact("results will be recomputed until the directory is writable"))
	}
	c.load()

	logger.Info("result cache ready",
		logging.String("dir", c.dir),
		logging.Int("items", c.index.len()),
		logging.Int("max_size", c.policy.maxSize),
		logging.Duration("ttl", c.policy.ttl))
	return c
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Location returns the cache root directory, or "" when disabled.
func (c *Cache) Location() string {
	if !c.Enabled() {
		return ""
	}
	return c.dir
}

// Key derives the cache key for a file fingerprint and params.
func (c *Cache) Key(fileFingerprint string, params Params) (string, error) {
	return DeriveKey(fileFingerprint, params)
}

// load reads the persisted index. Expired entries are dropped with their
// payloads; survivors become most recently used in file order. An unreadable
// index leaves the cache empty and its payload files orphaned.
func (c *Cache) load() {
	records, err := readIndexFile(c.indexPath)
	if err != nil {
		logging.WarnWithContext(c.logger, "failed to load result cache index", "cache_index_load_failed",
			logging.String("path", c.indexPath),
			logging.Error(err),
			logging.Hint("cache starts empty; run 'ocrcache cache clear' to remove orphaned payloads"),
			logging.Impact("previously cached results will be recomputed"))
		return
	}

	now := c.now()
	dirty := false
	expired := 0
	for i := range records {
		rec := records[i]
		if !ValidKey(rec.Key) {
			dirty = true
			continue
		}
		if c.policy.expired(rec.CreatedAt, now) {
			c.removePayload(rec.Key)
			expired++
			dirty = true
			continue
		}
		if _, dup := c.index.get(rec.Key); dup {
			dirty = true
		}
		c.index.put(&rec)
	}
	for c.index.len() > c.policy.maxSize {
		c.evictOldest()
		dirty = true
	}
	if expired > 0 {
		c.logger.Info("dropped expired cache entries on load", logging.Int("count", expired))
	}
	if dirty {
		c.persist()
	}
}

// Get looks up the result for fileFingerprint and params and decodes it into
// dst. It reports false on any miss, including decode failures.
func (c *Cache) Get(fileFingerprint string, params Params, dst any) bool {
	raw, ok := c.GetRaw(fileFingerprint, params)
	if !ok {
		return false
	}
	if dst == nil {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logging.WarnWithContext(c.logger, "cached payload does not match requested type", "cache_payload_decode_failed",
			logging.Error(err),
			logging.Hint("payload shape changed between versions; clear the cache"),
			logging.Impact("result will be recomputed"))
		return false
	}
	return true
}

// GetRaw is Get without decoding.
func (c *Cache) GetRaw(fileFingerprint string, params Params) (json.RawMessage, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key, err := DeriveKey(fileFingerprint, params)
	if err != nil {
		c.logger.Warn("cannot derive cache key",
			logging.String(logging.FieldEventType, "cache_key_failed"),
			logging.Error(err),
			logging.Hint("recognition params must be JSON encodable scalars"),
			logging.Impact("result is not cached"))
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.index.get(key)
	if !ok {
		c.logLookup(key, "miss", "absent")
		return nil, false
	}
	if c.policy.expired(rec.CreatedAt, c.now()) {
		c.purge(key)
		c.logLookup(key, "miss", "expired")
		return nil, false
	}

	data, err := c.payloads.read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "cache payload missing", "cache_payload_missing",
				logging.CacheKey(key),
				logging.Hint("payload file was removed outside ocrcache"),
				logging.Impact("entry purged; result will be recomputed"))
		} else {
			logging.WarnWithContext(c.logger, "cache payload unreadable", "cache_payload_read_failed",
				logging.CacheKey(key),
				logging.Error(err),
				logging.Hint("check permissions on cache.dir"),
				logging.Impact("entry purged; result will be recomputed"))
		}
		c.purge(key)
		return nil, false
	}
	if !json.Valid(data) {
		logging.WarnWithContext(c.logger, "cache payload corrupt", "cache_payload_corrupt",
			logging.CacheKey(key),
			logging.Hint("payload file was truncated or edited"),
			logging.Impact("entry purged; result will be recomputed"))
		c.purge(key)
		return nil, false
	}

	c.index.touch(key)
	c.logLookup(key, "hit", "fresh")
	return json.RawMessage(data), true
}

// Put stores payload for fileFingerprint and params. Least recently used
// entries are evicted first so the index never exceeds MaxSize. Failures are
// logged and leave the cache without the new entry.
func (c *Cache) Put(fileFingerprint string, params Params, payload any, metadata map[string]string) {
	if !c.Enabled() {
		return
	}
	key, err := DeriveKey(fileFingerprint, params)
	if err != nil {
		c.logger.Warn("cannot derive cache key",
			logging.String(logging.FieldEventType, "cache_key_failed"),
			logging.Error(err),
			logging.Hint("recognition params must be JSON encodable scalars"),
			logging.Impact("result is not cached"))
		return
	}
	configFP, err := ConfigFingerprint(params)
	if err != nil {
		configFP = ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logging.WarnWithContext(c.logger, "cannot encode cache payload", "cache_payload_encode_failed",
			logging.CacheKey(key),
			logging.Error(err),
			logging.Hint("payload must be JSON encodable"),
			logging.Impact("result is not cached"))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous, replaced := c.index.remove(key)
	evicted := 0
	for c.policy.mustEvict(c.index.len()) {
		c.evictOldest()
		evicted++
	}

	if err := c.payloads.write(key, data); err != nil {
		// The atomic write leaves any previous blob untouched.
		if replaced {
			c.index.put(previous)
		}
		if evicted > 0 || replaced {
			c.persist()
		}
		logging.WarnWithContext(c.logger, "failed to write cache payload", "cache_payload_write_failed",
			logging.CacheKey(key),
			logging.Error(err),
			logging.Hint("check free space and permissions on cache.dir"),
			logging.Impact("result is not cached"))
		return
	}

	rec := &record{
		Key:               key,
		CreatedAt:         c.now().UTC(),
		FileFingerprint:   fileFingerprint,
		ConfigFingerprint: configFP,
		Metadata:          cloneMetadata(metadata),
	}
	c.index.put(rec)
	if err := writeIndexFile(c.indexPath, c.index.records()); err != nil {
		c.index.remove(key)
		c.removePayload(key)
		logging.WarnWithContext(c.logger, "failed to persist cache index", "cache_index_write_failed",
			logging.CacheKey(key),
			logging.Error(err),
			logging.Hint("check free space and permissions on cache.dir"),
			logging.Impact("result is not cached"))
		return
	}

	c.logger.Debug("cached result",
		logging.CacheKey(key),
		logging.FileFingerprint(fileFingerprint),
		logging.Int("evicted", evicted),
		logging.Int("payload_bytes", len(data)))
}

// Delete removes key and its payload. Deleting an absent key is not an error;
// only a malformed key is rejected. A disabled cache ignores every call.
func (c *Cache) Delete(key string) error {
	if !c.Enabled() {
		return nil
	}
	key = strings.TrimSpace(key)
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge(key)
	return nil
}

// Clear removes every entry and payload, in memory and on disk.
func (c *Cache) Clear() {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.index.len()
	c.index.reset()
	if err := c.payloads.clear(); err != nil {
		logging.WarnWithContext(c.logger, "failed to remove cache payloads", "cache_clear_failed",
			logging.Error(err),
			logging.Hint("remove files under cache.dir manually"),
			logging.Impact("orphaned payload files remain on disk"))
	}
	if err := os.Remove(c.indexPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(c.logger, "failed to remove cache index", "cache_clear_failed",
			logging.Error(err),
			logging.Hint("remove index.json under cache.dir manually"),
			logging.Impact("stale entries may reappear after restart"))
	}
	c.logger.Info("result cache cleared", logging.Int("items", count))
}

// purge drops key from memory and disk and persists the index. Callers hold mu.
func (c *Cache) purge(key string) {
	c.index.remove(key)
	c.removePayload(key)
	c.persist()
}

// evictOldest removes the least recently used entry without persisting.
// Callers hold mu.
func (c *Cache) evictOldest() {
	rec, ok := c.index.oldest()
	if !ok {
		return
	}
	c.index.remove(rec.Key)
	c.removePayload(rec.Key)
	c.logger.Debug("evicted cache entry",
		logging.Decision("cache_eviction", "evicted", "least recently used", logging.CacheKey(rec.Key))...)
}

func (c *Cache) removePayload(key string) {
	if err := c.payloads.remove(key); err != nil {
		c.logger.Debug("failed to remove cache payload",
			logging.CacheKey(key),
			logging.Error(err))
	}
}

func (c *Cache) persist() {
	if err := writeIndexFile(c.indexPath, c.index.records()); err != nil {
		logging.WarnWithContext(c.logger, "failed to persist cache index", "cache_index_write_failed",
			logging.Error(err),
			logging.Hint("check free space and permissions on cache.dir"),
			logging.Impact("index on disk may reference removed payloads until next write"))
	}
}

func (c *Cache) logLookup(key, result, reason string) {
	c.logger.Debug("cache lookup",
		logging.Decision("cache_lookup", result, reason, logging.CacheKey(key))...)
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
