// internal/store/store.go
//
// Key/value persistence with per-key expiry.
// This is the server-side stand-in for a browser's local storage: every
// browser reads and writes through its own Namespace.
//
// Implementations:
//   - memory (memory.go): map + RWMutex, lost on restart.
//   - sqlite (sqlite.go): kv table in a SQLite file.

package store

import (
	"context"
	"time"
)

// Store persists string values with an optional time-to-live.
type Store interface {
	// Get returns the value and true, or false when the key is missing or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. ttl <= 0 means the value never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Sweep deletes expired entries and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// Namespace returns a Store whose keys are prefixed with prefix + ":".
// Sweep is passed through to the underlying store.
func Namespace(st Store, prefix string) Store {
	return &namespaced{st: st, prefix: prefix + ":"}
}

type namespaced struct {
	st     Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.st.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return n.st.Set(ctx, n.prefix+key, value, ttl)
}

func (n *namespaced) Sweep(ctx context.Context) (int, error) {
	return n.st.Sweep(ctx)
}

// expiry converts a ttl into an absolute deadline; the zero time means never.
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
