package helpers

import (
	"context"
	"fmt"
	"time"
)

// PollUntil calls testFn at intervals until it returns nil, the timeout elapses, or ctx is
// done. On timeout the last error from testFn is wrapped into the returned error.
func PollUntil(
	ctx context.Context,
	testFn func(context.Context) error,
	timeout time.Duration,
	interval time.Duration,
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	lastErr := testFn(ctx)
	for lastErr != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("timed out after %s, last result was: %w", timeout, lastErr)
		case <-ticker.C:
			lastErr = testFn(ctx)
		}
	}
	return nil
}
