package cache

import (
	"context"
	"time"
)

// NoOp is the fallback Cache used when CACHE_URL is unset or the Redis
// client failed to connect at startup. Every call is a cache miss;
// callers proceed with cache_hit=false and never block (spec.md §5).
type NoOp struct{}

// NewNoOp constructs a NoOp cache.
func NewNoOp() *NoOp { return &NoOp{} }

func (n *NoOp) Get(ctx context.Context, key string) (string, bool) { return "", false }

func (n *NoOp) Set(ctx context.Context, key string, value string, ttl time.Duration) {}

func (n *NoOp) Available() bool { return false }

var _ Cache = (*NoOp)(nil)
