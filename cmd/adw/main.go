// Package main implements the adw CLI: a thin driver over
// internal/adw's orchestrator, wiring a single issue or a batch of issues
// through the analysis -> plan -> build -> improve -> pr phase sequence
// (SPEC_FULL.md §4.11-§4.15).
//
// Entry point and global flags live here; run/resume/batch each get their
// own cmd_*.go file, the same split the kotadb CLI and the teacher's
// cmd/nerd use for their own command trees.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kotadb/internal/config"
	"kotadb/internal/logging"
)

var (
	verbose    bool
	workspace  string
	configPath string
	repoSlug   string // "owner/repo", overrides cfg-derived value

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "adw",
	Short: "adw - autonomous developer workflow: drive an issue from analysis to an opened PR",
	Long: `adw runs kotadb's fixed five-phase orchestrator (analysis, plan, build,
improve, pr) against one GitHub issue at a time, or a batch of issues
concurrently, checkpointing progress so an interrupted run can resume.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		built, err := zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize console logger: %w", err)
		}
		logger = built

		ws := workspace
		if ws == "" {
			var err error
			ws, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve workspace: %w", err)
			}
		} else if abs, err := filepath.Abs(ws); err == nil {
			ws = abs
		}
		workspace = ws

		path := configPath
		if path == "" {
			path = filepath.Join(ws, ".kotadb", "config.yaml")
		}
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Logging.DebugMode = true
			loaded.Logging.Level = "debug"
		}
		cfg = loaded

		if err := logging.InitializeWithConfig(ws, cfg.Logging.DebugMode, cfg.Logging.Categories, cfg.Logging.Level, cfg.Logging.JSONFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: <workspace>/.kotadb/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&repoSlug, "repo", "", "GitHub repository as owner/repo (required to open PRs)")

	runCmd.Flags().IntVar(&runIssueNumber, "issue", 0, "Issue number to drive (required)")
	runCmd.Flags().StringVar(&runDomain, "domain", "", "Domain label used in the commit subject and pattern lookups")
	runCmd.Flags().StringVar(&runSpecPath, "spec", "", "Path to the issue's spec/requirements document")
	runCmd.Flags().StringVar(&runTitle, "title", "", "Issue title (used as the PR title)")
	runCmd.Flags().StringVar(&runBody, "body", "", "Issue body (fed to the analysis phase as the initial instruction)")
	resumeCmd.Flags().AddFlagSet(runCmd.Flags())

	batchCmd.Flags().IntSliceVar(&batchIssues, "issues", nil, "Comma-separated issue numbers to run")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "Maximum issues run concurrently")
	batchCmd.Flags().BoolVar(&batchFailFast, "fail-fast", false, "Cancel remaining issues after the first failure")

	rootCmd.AddCommand(runCmd, resumeCmd, batchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
