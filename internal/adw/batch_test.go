package adw

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchRunnerRunsAllIssuesConcurrently(t *testing.T) {
	var calls int32
	runner := NewBatchRunner(3, func(ctx context.Context, issue int) (string, float64, error) {
		atomic.AddInt32(&calls, 1)
		return fmt.Sprintf("https://example.com/pr/%d", issue), 0.01, nil
	})

	results, totals := runner.Run(context.Background(), []int{1, 2, 3, 4}, false)
	assert.Equal(t, int32(4), calls)
	assert.Len(t, results, 4)
	assert.Equal(t, BatchTotals{Attempted: 4, Succeeded: 4, Failed: 0, Skipped: 0}, totals)
}

func TestBatchRunnerFailFastSkipsRemainingIssues(t *testing.T) {
	var calls int32
	runner := NewBatchRunner(1, func(ctx context.Context, issue int) (string, float64, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "", 0, errors.New("boom")
		}
		return "https://example.com/pr", 0, nil
	})

	results, totals := runner.Run(context.Background(), []int{1, 2, 3}, true)
	assert.Len(t, results, 3)
	assert.Equal(t, 3, totals.Attempted)
	assert.Equal(t, 1, totals.Failed)
	assert.GreaterOrEqual(t, totals.Skipped, 1, "at least the issues after the first failure should be skipped")

	skipped := 0
	for _, r := range results {
		if errors.Is(r.Error, ErrCancelledFailFast) {
			skipped++
		}
	}
	assert.Equal(t, totals.Skipped, skipped)
}

func TestBatchRunnerWithoutFailFastRunsEveryIssueDespiteFailures(t *testing.T) {
	runner := NewBatchRunner(2, func(ctx context.Context, issue int) (string, float64, error) {
		if issue%2 == 0 {
			return "", 0, errors.New("failed")
		}
		return "ok", 0, nil
	})

	results, totals := runner.Run(context.Background(), []int{1, 2, 3, 4}, false)
	assert.Len(t, results, 4)
	assert.Equal(t, 0, totals.Skipped)
	assert.Equal(t, 2, totals.Succeeded)
	assert.Equal(t, 2, totals.Failed)
}

func TestNewBatchRunnerDefaultsConcurrency(t *testing.T) {
	runner := NewBatchRunner(0, func(ctx context.Context, issue int) (string, float64, error) { return "", 0, nil })
	assert.Equal(t, 3, runner.concurrency)
}
