// Package main implements the kotadb CLI: an embedded-store MCP server
// exposing a fixed tool catalog (§4.7) over stdio or HTTP, plus the
// index/query/sync maintenance subcommands built on the same store.
//
// Entry point and global flags live here; each subcommand's implementation
// is split into its own cmd_*.go file, the same layout the teacher's
// cmd/nerd/main.go uses for its own command tree.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

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
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kotadb",
	Short: "kotadb - an embedded code-intelligence store with an MCP tool server",
	Long: `kotadb indexes a repository into an embedded SQLite store and serves a
fixed catalog of code-intelligence tools over the Model Context Protocol,
by default over stdio.

Run without a subcommand to start the MCP server.`,
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
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: <workspace>/.kotadb/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Operation timeout (0 disables)")

	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport: stdio or http")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8181", "HTTP listen address (only with --transport=http)")
	serveCmd.Flags().StringVar(&serveToolset, "toolset", "default", "Toolset: core, default, memory, or full")

	indexCmd.Flags().StringVar(&indexRoot, "root", "", "Repository root to index (default: workspace)")
	indexCmd.Flags().StringVar(&indexFullName, "name", "", "Repository full name, e.g. acme/widgets")
	indexCmd.Flags().StringVar(&indexGitURL, "git-url", "", "Repository git remote URL")

	rootCmd.AddCommand(serveCmd, indexCmd, syncExportCmd, syncImportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
