package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/commandcenter/commandcenter/pkg/embedding"
)

// embedWithRetry calls embedder.Embed, retrying on error with
// exponential backoff up to maxAttempts (spec.md §4.2 step 6). A
// chunk that still fails after maxAttempts is reported to the caller
// rather than aborting the whole sync.
func embedWithRetry(ctx context.Context, embedder embedding.Embedder, text string, maxAttempts int) ([]float32, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		vec, err := embedder.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
	}
	return nil, fmt.Errorf("embed chunk after %d attempts: %w", maxAttempts, lastErr)
}
