package adw

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"kotadb/internal/logging"
)

// ErrCancelledFailFast is returned as an IssueResult's Error when failFast
// observed an earlier issue's failure and skipped this one without invoking
// the Orchestrator (§4.14.1).
var ErrCancelledFailFast = errors.New("Cancelled (fail-fast)")

// IssueResult is one issue's outcome from a batch run.
type IssueResult struct {
	Issue      int
	Success    bool
	PRURL      string
	Error      error
	DurationMs int64
	CostUsd    float64
}

// BatchTotals aggregates a batch run's IssueResults.
type BatchTotals struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// BatchRunner fans out issue workflows across a bounded pool of goroutines,
// structured like githubnext-gh-aw/pkg/cli/logs.go's
// downloadRunArtifactsConcurrent: a conc/pool.WithResults bounded by
// WithMaxGoroutines, one result per item, aggregated after every goroutine
// completes.
type BatchRunner struct {
	concurrency int
	runOne      func(ctx context.Context, issueNumber int) (prURL string, costUsd float64, err error)
}

// NewBatchRunner builds a BatchRunner. concurrency <= 0 defaults to 3
// (config.ADWConfig.MaxParallelAgents's default). runOne is the per-issue
// workflow invocation — ordinarily an Orchestrator.Run call — injected so
// batch fan-out stays independently testable from orchestration.
func NewBatchRunner(concurrency int, runOne func(ctx context.Context, issueNumber int) (string, float64, error)) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &BatchRunner{concurrency: concurrency, runOne: runOne}
}

// Run executes issues concurrently, bounded by concurrency. If failFast is
// true, the first failure flips a shared atomic.Bool; every closure checks
// it before starting work and returns ErrCancelledFailFast without calling
// runOne if already tripped (§4.14.1).
func (b *BatchRunner) Run(ctx context.Context, issues []int, failFast bool) ([]IssueResult, BatchTotals) {
	var cancelled atomic.Bool

	p := pool.NewWithResults[IssueResult]().WithMaxGoroutines(b.concurrency)
	for _, issue := range issues {
		issue := issue
		p.Go(func() IssueResult {
			if cancelled.Load() {
				logging.BatchDebug("skipping issue #%d: fail-fast triggered", issue)
				return IssueResult{Issue: issue, Success: false, Error: ErrCancelledFailFast}
			}

			start := time.Now()
			prURL, cost, err := b.runOne(ctx, issue)
			result := IssueResult{
				Issue:      issue,
				Success:    err == nil,
				PRURL:      prURL,
				Error:      err,
				DurationMs: time.Since(start).Milliseconds(),
				CostUsd:    cost,
			}

			if err != nil {
				logging.BatchError("issue #%d failed: %v", issue, err)
				if failFast {
					cancelled.Store(true)
				}
			} else {
				logging.Batch("issue #%d succeeded: %s", issue, prURL)
			}
			return result
		})
	}

	results := p.Wait()

	totals := BatchTotals{Attempted: len(results)}
	for _, r := range results {
		switch {
		case errors.Is(r.Error, ErrCancelledFailFast):
			totals.Skipped++
		case r.Success:
			totals.Succeeded++
		default:
			totals.Failed++
		}
	}
	logging.Batch("batch complete: %d attempted, %d succeeded, %d failed, %d skipped",
		totals.Attempted, totals.Succeeded, totals.Failed, totals.Skipped)
	return results, totals
}
