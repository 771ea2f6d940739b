package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	syncpkg "kotadb/internal/sync"
)

var (
	syncDir   string
	syncForce bool
)

var syncExportCmd = &cobra.Command{
	Use:   "sync-export",
	Short: "Export the store's syncable tables to hash-gated JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStoreAndRegistry()
		if err != nil {
			return err
		}
		defer st.Close()

		dir := resolveSyncDir()
		sv := syncpkg.New(st)
		result, err := sv.Export(dir, syncForce)
		if err != nil {
			return fmt.Errorf("sync export: %w", err)
		}
		fmt.Printf("exported %v, skipped %v, deletions %d\n", result.TablesExported, result.TablesSkipped, result.Deletions)
		return nil
	},
}

var syncImportCmd = &cobra.Command{
	Use:   "sync-import",
	Short: "Import a previously exported JSONL directory into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStoreAndRegistry()
		if err != nil {
			return err
		}
		defer st.Close()

		dir := resolveSyncDir()
		sv := syncpkg.New(st)
		result, err := sv.Import(dir)
		if err != nil {
			return fmt.Errorf("sync import: %w", err)
		}
		fmt.Printf("imported %v, %d deletions applied\n", result.TablesImported, result.Deletions)
		return nil
	},
}

func resolveSyncDir() string {
	if syncDir == "" {
		return filepath.Join(workspace, ".kotadb", "sync")
	}
	if filepath.IsAbs(syncDir) {
		return syncDir
	}
	return filepath.Join(workspace, syncDir)
}

func init() {
	syncExportCmd.Flags().StringVar(&syncDir, "dir", "", "Export/import directory (default: <workspace>/.kotadb/sync)")
	syncExportCmd.Flags().BoolVar(&syncForce, "force", false, "Bypass the per-table hash check and re-export everything")
	syncImportCmd.Flags().StringVar(&syncDir, "dir", "", "Export/import directory (default: <workspace>/.kotadb/sync)")
}
