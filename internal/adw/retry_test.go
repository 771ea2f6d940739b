package adw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kotadb/internal/kerrors"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, kerrors.BackoffParams{Base: time.Millisecond, Max: 10 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryAbortsImmediatelyOnLogicError(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 5, kerrors.BackoffParams{Base: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return errors.New("invalid argument")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, kerrors.BackoffParams{Base: time.Millisecond, Max: 10 * time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return errors.New("timeout exceeded")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, kerrors.BackoffParams{Base: time.Millisecond}, func(ctx context.Context) error {
		return errors.New("timeout")
	})
	assert.Error(t, err)
}
