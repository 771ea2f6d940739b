package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kotadb/internal/adw"
)

var (
	batchIssues      []int
	batchConcurrency int
	batchFailFast    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a bounded-concurrency batch of issues (§4.14)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(batchIssues) == 0 {
			return fmt.Errorf("--issues is required")
		}
		return runBatch(cmd.Context(), batchIssues, batchConcurrency, batchFailFast)
	},
}

func runBatch(ctx context.Context, issues []int, concurrency int, failFast bool) error {
	deps, err := openADWDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	orch, err := newOrchestrator(deps)
	if err != nil {
		return err
	}

	manifest, err := adw.NewManifest(filepath.Join(workspace, "automation", ".data", "manifest.json"))
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}

	runner := adw.NewBatchRunner(concurrency, func(ctx context.Context, issueNumber int) (string, float64, error) {
		issue := adw.Issue{Number: issueNumber}
		if err := manifest.RecordStart(issueNumber, "", ""); err != nil {
			fmt.Printf("issue #%d: failed to record manifest start: %v\n", issueNumber, err)
		}
		result, err := orch.Run(ctx, issue)
		if result == nil {
			result = &adw.Result{IssueNumber: issueNumber, FailedPhase: "start"}
		}
		if recErr := manifest.RecordResult(result, err); recErr != nil {
			fmt.Printf("issue #%d: failed to record manifest result: %v\n", issueNumber, recErr)
		}
		if err != nil {
			return "", 0, err
		}
		return result.PRURL, result.CostUsd, nil
	})

	results, totals := runner.Run(ctx, issues, failFast)
	for _, r := range results {
		if r.Error != nil {
			fmt.Printf("issue #%d: failed: %v\n", r.Issue, r.Error)
			continue
		}
		fmt.Printf("issue #%d: succeeded, PR: %s\n", r.Issue, r.PRURL)
	}
	fmt.Printf("batch complete: attempted=%d succeeded=%d failed=%d skipped=%d\n",
		totals.Attempted, totals.Succeeded, totals.Failed, totals.Skipped)
	return nil
}
