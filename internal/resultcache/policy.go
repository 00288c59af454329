package resultcache

import "time"

const (
	// DefaultMaxSize applies when Options.MaxSize is not positive.
	DefaultMaxSize = 100
	// DefaultTTL applies when Options.TTL is not positive.
	DefaultTTL = time.Hour
)

// policy combines capacity eviction and time expiry. The two are independent:
// an expired entry still counts toward capacity until it is read, loaded or
// evicted.
type policy struct {
	maxSize int
	ttl     time.Duration
}

func newPolicy(maxSize int, ttl time.Duration) policy {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return policy{maxSize: maxSize, ttl: ttl}
}

// expired reports whether an entry created at createdAt is absent at now.
func (p policy) expired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) >= p.ttl
}

// mustEvict reports whether count entries leave no room for one more.
func (p policy) mustEvict(count int) bool {
	return count >= p.maxSize
}

func (p policy) expiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(p.ttl)
}
