package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kotadb/internal/adw"
)

var (
	runIssueNumber int
	runDomain      string
	runSpecPath    string
	runTitle       string
	runBody        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a single issue through analysis -> plan -> build -> improve -> pr",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runIssueNumber == 0 {
			return fmt.Errorf("--issue is required")
		}
		return runIssue(cmd, adw.Issue{
			Number:   runIssueNumber,
			Domain:   runDomain,
			SpecPath: runSpecPath,
			Title:    runTitle,
			Body:     runBody,
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a checkpointed issue, skipping already-completed phases",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runIssueNumber == 0 {
			return fmt.Errorf("--issue is required")
		}
		return runIssue(cmd, adw.Issue{
			Number:   runIssueNumber,
			Domain:   runDomain,
			SpecPath: runSpecPath,
			Title:    runTitle,
			Body:     runBody,
		})
	},
}

// runIssue wires one Orchestrator and drives issue to completion. run and
// resume share this: Orchestrator.Run already loads any existing checkpoint
// and skips completed phases (§4.12), so "resume" is just "run" against an
// issue that may already have partial progress on disk.
func runIssue(cmd *cobra.Command, issue adw.Issue) error {
	deps, err := openADWDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	orch, err := newOrchestrator(deps)
	if err != nil {
		return err
	}

	result, err := orch.Run(cmd.Context(), issue)
	if result != nil {
		printResult(result)
	}
	if err != nil {
		return fmt.Errorf("adw run: %w", err)
	}
	return nil
}

func printResult(result *adw.Result) {
	if result.Succeeded {
		fmt.Printf("issue #%d: succeeded in %dms, PR: %s\n", result.IssueNumber, result.DurationMs, result.PRURL)
		return
	}
	fmt.Printf("issue #%d: failed at phase %q after %dms\n", result.IssueNumber, result.FailedPhase, result.DurationMs)
}
