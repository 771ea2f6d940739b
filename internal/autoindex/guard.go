// Package autoindex implements the auto-index guard (§4.9): before a tool
// that needs indexed state runs, make sure the current repository actually
// has one, indexing it once if not.
package autoindex

import (
	"context"
	"fmt"

	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// Guard ties an Indexer to a Store to decide, and act on, whether a
// repository needs indexing before a tool call proceeds.
type Guard struct {
	store *store.Store
	idx   *indexer.Indexer
}

// New builds a Guard.
func New(s *store.Store, idx *indexer.Indexer) *Guard {
	return &Guard{store: s, idx: idx}
}

// Result reports whether Ensure triggered an index run and, if so, whether
// it succeeded.
type Result struct {
	Repository  *store.Repository
	AutoIndexed bool
	IndexError  error
}

// Ensure resolves (creating if needed) the Repository for root/fullName,
// and runs a full index if none exists yet, last_indexed_at is null, or no
// Files remain (§4.9). required controls what happens when that index run
// fails: a read-only tool can proceed on empty data (required=false), a
// tool that depends on indexed data must fail the call (required=true).
func (g *Guard) Ensure(ctx context.Context, root, fullName, gitURL string, required bool) (*Result, error) {
	repo, err := g.store.UpsertRepository(fullName, gitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository: %w", err)
	}

	if !needsIndex(g.store, repo) {
		return &Result{Repository: repo}, nil
	}

	logging.AutoIndex("auto-indexing repository %s (root=%s)", repo.FullName, root)
	_, indexErr := g.idx.FullIndex(ctx, root, fullName, gitURL, extractor.WalkOptions{})
	if indexErr != nil {
		logging.AutoIndexWarn("auto-index of %s failed: %v", repo.FullName, indexErr)
		if required {
			return nil, fmt.Errorf("auto-index required but failed: %w", indexErr)
		}
		return &Result{Repository: repo, AutoIndexed: true, IndexError: indexErr}, nil
	}

	repo, err = g.store.GetRepository(repo.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Repository: repo, AutoIndexed: true}, nil
}

func needsIndex(s *store.Store, repo *store.Repository) bool {
	if repo.LastIndexedAt == nil {
		return true
	}
	files, err := s.ListFilesByRepository(repo.ID)
	if err != nil {
		logging.AutoIndexWarn("failed to check file count for %s: %v", repo.FullName, err)
		return true
	}
	return len(files) == 0
}
