package telemetry

import (
	"sync"
	"time"
)

// tokenBucket is an in-process per-hour rate limiter (spec.md §4.4:
// "token bucket with per-hour refill"). It is reconciled against the
// vendor's own 429 responses by zeroing tokens and sleeping to the next
// hour boundary, rather than trusting the local clock alone.
//
// A standard token-bucket limiter (x/time/rate) refills continuously;
// this one refills in a single jump at each hour boundary because the
// vendor APIs quote a per-hour request cap, not a steady rate.
type tokenBucket struct {
	mu        sync.Mutex
	perHour   int
	tokens    int
	resetAt   time.Time
	nowFunc   func() time.Time
}

func newTokenBucket(perHour int, now time.Time) *tokenBucket {
	return &tokenBucket{
		perHour: perHour,
		tokens:  perHour,
		resetAt: now.Truncate(time.Hour).Add(time.Hour),
		nowFunc: time.Now,
	}
}

// take attempts to consume one token, refilling first if the hour
// boundary has passed. It reports the remaining tokens and, if none are
// available, the duration to wait until the next refill.
func (b *tokenBucket) take() (ok bool, remaining int, waitFor time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	b.refillLocked(now)

	if b.tokens <= 0 {
		return false, 0, b.resetAt.Sub(now)
	}
	b.tokens--
	return true, b.tokens, 0
}

// refillLocked resets the bucket to perHour tokens at each hour
// boundary. Caller must hold mu.
func (b *tokenBucket) refillLocked(now time.Time) {
	if !now.Before(b.resetAt) {
		b.tokens = b.perHour
		b.resetAt = now.Truncate(time.Hour).Add(time.Hour)
	}
}

// reconcile429 zeroes the bucket and reports the wait until the next
// hour boundary, matching spec.md §4.4's "429 → set tokens to 0, sleep
// to hour boundary" reconciliation.
func (b *tokenBucket) reconcile429() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	b.tokens = 0
	if !now.Before(b.resetAt) {
		b.resetAt = now.Truncate(time.Hour).Add(time.Hour)
	}
	return b.resetAt.Sub(now)
}

// remaining reports the current token count without consuming one,
// used to populate PollerHealth.requests_this_hour.
func (b *tokenBucket) remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(b.nowFunc())
	return b.tokens
}
