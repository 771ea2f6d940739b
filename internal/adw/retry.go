package adw

import (
	"context"
	"time"

	"kotadb/internal/kerrors"
)

// withRetry runs fn up to maxAttempts times, backing off between attempts
// per kerrors.ComputeBackoff. A non-transient error (per kerrors.Classify)
// aborts immediately without consuming further attempts, mirroring the
// teacher's handleTaskFailure/classifyTaskError split between "retry with
// backoff" and "mark failed now" (internal/campaign/orchestrator_failure.go).
func withRetry(ctx context.Context, maxAttempts int, params kerrors.BackoffParams, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		class := kerrors.Classify(err)
		if class != kerrors.ClassTransient || attempt == maxAttempts {
			return err
		}

		backoff := kerrors.ComputeBackoff(class, attempt, params)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}
