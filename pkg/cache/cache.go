// Package cache provides the optional TTL key-value cache used by
// pkg/contextmgr to cache assembled context bundles (spec.md §4.1, §5).
// Selection between the real and no-op implementation happens once at
// startup (spec.md §9 Design Note: "graceful cache fallback"); callers
// never branch on availability per-call.
package cache

import (
	"context"
	"time"
)

// Cache is a capability behind a narrow interface so components never
// need to know whether a real backend is attached.
type Cache interface {
	// Get returns the cached value and true if present and unexpired.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	// Available reports whether this Cache is backed by a real store.
	// pkg/contextmgr uses this only for logging, never for branching.
	Available() bool
}
