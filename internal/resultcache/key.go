package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// KeyLength is the number of hex characters in a cache key. 64 bits keeps the
// birthday collision probability below 1e-12 for caches holding up to a few
// thousand entries; re-evaluate before raising max_size by orders of
// magnitude.
const KeyLength = 16

const configFingerprintLength = 8

// ErrInvalidKey reports a key that is not KeyLength lowercase hex characters.
var ErrInvalidKey = errors.New("invalid cache key")

// Params is the recognition configuration that participates in the cache
// key. Values should be scalars (string, bool, number).
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// canonical serializes params as a JSON array of [name, value] pairs sorted
// by name, so insertion order never affects the result.
func canonical(params Params) ([]byte, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, [2]any{name, params[name]})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("canonicalize params: %w", err)
	}
	return data, nil
}

// DeriveKey returns the cache key for a file fingerprint and recognition
// params: the first KeyLength hex characters of
// sha256(fileFingerprint + "_" + canonical(params)).
func DeriveKey(fileFingerprint string, params Params) (string, error) {
	data, err := canonical(params)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(fileFingerprint))
	h.Write([]byte{'_'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:KeyLength], nil
}

// ConfigFingerprint returns a short hash of params recorded next to each
// entry for diagnostics. Lookups never use it.
func ConfigFingerprint(params Params) (string, error) {
	if params == nil {
		params = Params{}
	}
	data, err := json.Marshal(map[string]any(params))
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:configFingerprintLength], nil
}

// ValidKey reports whether key has the shape produced by DeriveKey.
func ValidKey(key string) bool {
	if len(key) != KeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
