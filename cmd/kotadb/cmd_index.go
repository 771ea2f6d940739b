package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
)

var (
	indexRoot     string
	indexFullName string
	indexGitURL   string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run a full index of a repository into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStoreAndRegistry()
		if err != nil {
			return err
		}
		defer st.Close()

		root := indexRoot
		if root == "" {
			root = workspace
		}
		fullName := indexFullName
		if fullName == "" {
			fullName = "local/" + filepath.Base(root)
		}
		gitURL := indexGitURL
		if gitURL == "" {
			gitURL = root
		}

		idx := indexer.New(st, extractor.NewFactory())
		result, err := idx.FullIndex(cmd.Context(), root, fullName, gitURL, extractor.WalkOptions{})
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		fmt.Printf("indexed %s: %d files indexed, %d skipped, %d deleted, %d parse failures\n",
			fullName, result.FilesIndexed, result.FilesSkipped, result.FilesDeleted, len(result.ParseFailures))
		return nil
	},
}
