// Package resultcache stores recognition results keyed by file content and
// recognition settings.
//
// A Cache combines four pieces: the key deriver (DeriveKey), an in-memory
// index with least-recently-used ordering that is mirrored to index.json, a
// payload store holding one JSON blob per key under payloads/, and a policy
// enforcing a maximum entry count plus a time-to-live.
//
// Expiry is lazy. Entries older than the TTL are dropped when they are read
// or when the index is loaded at startup; nothing sweeps them in the
// background. Capacity eviction runs only on Put and always before the new
// entry is inserted, so the index never holds more than MaxSize entries.
//
// Storage failures never reach callers. They are logged and surface as a
// miss (Get) or a no-op (Put, Clear). A missing or unreadable payload is
// purged on the next access.
//
// The Cache guards its own state with a mutex but does not coordinate
// computation: two callers that miss on the same key will both compute and
// both Put. Use internal/keylock around the compute step when at-most-once
// recognition per key matters.
package resultcache
