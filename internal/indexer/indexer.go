// Package indexer drives full and incremental indexing of a working tree
// into the store, per the indexer workflow.
package indexer

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"kotadb/internal/extractor"
	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// Indexer ties an extractor Factory to a Store.
type Indexer struct {
	store   *store.Store
	factory *extractor.Factory
}

// New builds an Indexer.
func New(s *store.Store, f *extractor.Factory) *Indexer {
	return &Indexer{store: s, factory: f}
}

// Result summarizes one indexing run.
type Result struct {
	Repository    *store.Repository
	FilesIndexed  int
	FilesSkipped  int
	FilesDeleted  int
	ParseFailures []extractor.ParseFailure
}

// FullIndex walks root end to end: ensures the Repository row, extracts
// every supported file, upserts it with its symbols and references in a
// single per-file transaction, resolves reference targets against the
// walked file set, and advances last_indexed_at.
func (ix *Indexer) FullIndex(ctx context.Context, root, fullName, gitURL string, opts extractor.WalkOptions) (*Result, error) {
	repo, err := ix.store.UpsertRepository(fullName, gitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure repository: %w", err)
	}

	walked, failures, err := extractor.Walk(ctx, root, ix.factory, opts)
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}

	modulePath := readGoModulePath(readFileQuiet(filepath.Join(root, "go.mod")))

	relPaths := make([]string, 0, len(walked))
	for _, w := range walked {
		relPaths = append(relPaths, relPathOf(root, w.Path))
	}
	paths := newPathIndex(relPaths)

	result := &Result{Repository: repo, ParseFailures: failures}
	for _, w := range walked {
		rel := relPathOf(root, w.Path)
		if err := ix.indexFile(repo.ID, rel, w, modulePath, paths); err != nil {
			logging.IndexerDebug("index failed for %s: %v", rel, err)
			result.ParseFailures = append(result.ParseFailures, extractor.ParseFailure{Path: rel, Err: err})
			continue
		}
		if w.Skipped {
			result.FilesSkipped++
		} else {
			result.FilesIndexed++
		}
	}

	if err := ix.store.TouchLastIndexed(repo.ID); err != nil {
		return nil, fmt.Errorf("failed to update last_indexed_at: %w", err)
	}
	logging.Get(logging.CategoryIndexer).Info(
		"full index of %s complete: %d indexed, %d skipped, %d failures",
		fullName, result.FilesIndexed, result.FilesSkipped, len(result.ParseFailures),
	)
	return result, nil
}

// Incremental applies a set of changed and deleted paths (relative to the
// repository root) to an already-indexed repository, re-resolving only the
// references that touch the affected files.
func (ix *Indexer) Incremental(ctx context.Context, root string, repo *store.Repository, changed, deleted []string) (*Result, error) {
	result := &Result{Repository: repo}

	for _, rel := range deleted {
		f, err := ix.store.GetFileByPath(repo.ID, rel)
		if err != nil {
			continue // already gone
		}
		if err := ix.store.WithTx(func(tx *sql.Tx) error {
			return ix.store.DeleteFile(tx, f.ID)
		}); err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", rel, err)
		}
		if err := ix.clearReferencesTargeting(rel); err != nil {
			return nil, err
		}
		result.FilesDeleted++
	}

	existingFiles, err := ix.store.ListFilesByRepository(repo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository files: %w", err)
	}
	allPaths := make([]string, 0, len(existingFiles))
	for _, f := range existingFiles {
		allPaths = append(allPaths, f.Path)
	}
	paths := newPathIndex(allPaths)
	modulePath := readGoModulePath(readFileQuiet(filepath.Join(root, "go.mod")))

	for _, rel := range changed {
		absPath := filepath.Join(root, filepath.FromSlash(rel))
		if !ix.factory.HasExtractor(absPath) {
			continue
		}
		content, err := os.ReadFile(absPath)
		if err != nil {
			result.ParseFailures = append(result.ParseFailures, extractor.ParseFailure{Path: rel, Err: err})
			continue
		}

		existing, err := ix.store.GetFileByPath(repo.ID, rel)
		hash := contentHash(content)
		if err == nil && existing.ContentHash == hash {
			continue // unchanged
		}

		lang := ix.factory.ExtractorFor(absPath).Language()
		symbols, refs, extractErr := ix.factory.ExtractorFor(absPath).Extract(absPath, content)
		if extractErr != nil {
			result.ParseFailures = append(result.ParseFailures, extractor.ParseFailure{Path: rel, Err: extractErr})
			continue
		}

		w := extractor.Extracted{
			Path: absPath, Language: lang, ContentHash: hash,
			Size: int64(len(content)), Content: string(content),
			Symbols: symbols, References: refs,
		}
		paths[rel] = true
		if err := ix.indexFile(repo.ID, rel, w, modulePath, paths); err != nil {
			result.ParseFailures = append(result.ParseFailures, extractor.ParseFailure{Path: rel, Err: err})
			continue
		}
		result.FilesIndexed++
	}

	if len(changed) > 0 {
		if err := ix.retryUnresolvedReferences(repo.ID, modulePath); err != nil {
			return nil, err
		}
	}

	if err := ix.store.TouchLastIndexed(repo.ID); err != nil {
		return nil, fmt.Errorf("failed to update last_indexed_at: %w", err)
	}
	return result, nil
}

// indexFile applies the file-level upsert (upsert File, delete+reinsert
// Symbols/References) inside one transaction, resolving each Reference's
// target against paths before insert.
func (ix *Indexer) indexFile(repositoryID, rel string, w extractor.Extracted, modulePath string, paths pathIndex) error {
	return ix.store.WithTx(func(tx *sql.Tx) error {
		f, err := ix.store.UpsertFile(tx, store.File{
			RepositoryID: repositoryID,
			Path:         rel,
			Language:     w.Language,
			ContentHash:  w.ContentHash,
			Size:         w.Size,
			Content:      w.Content,
		})
		if err != nil {
			return err
		}
		if err := store.DeleteSymbolsForFile(tx, f.ID); err != nil {
			return err
		}
		if err := store.DeleteReferencesForFile(tx, f.ID); err != nil {
			return err
		}
		if w.Skipped {
			return nil
		}
		for _, sym := range w.Symbols {
			sym.FileID = f.ID
			if err := store.InsertSymbol(tx, sym); err != nil {
				return err
			}
		}
		for _, ref := range w.References {
			ref.FileID = f.ID
			ref.TargetFilePath = resolveReference(w.Language, rel, ref.ImportSource, modulePath, paths)
			if err := store.InsertReference(tx, ref); err != nil {
				return err
			}
		}
		return nil
	})
}

// clearReferencesTargeting nulls the target of every Reference that pointed
// at rel, since that file no longer exists.
func (ix *Indexer) clearReferencesTargeting(rel string) error {
	refs, err := ix.store.ReferencesTargeting(rel)
	if err != nil {
		return fmt.Errorf("failed to find references targeting %s: %w", rel, err)
	}
	if len(refs) == 0 {
		return nil
	}
	return ix.store.WithTx(func(tx *sql.Tx) error {
		for _, r := range refs {
			if err := store.UpdateReferenceTarget(tx, r.ID, ""); err != nil {
				return err
			}
		}
		return nil
	})
}

// retryUnresolvedReferences re-attempts resolution for every
// currently-unresolved Reference in the repository, used after changed
// paths are applied since a newly-added file may now satisfy a previously
// dangling import.
func (ix *Indexer) retryUnresolvedReferences(repositoryID, modulePath string) error {
	unresolved, err := ix.store.UnresolvedReferencesForRepository(repositoryID)
	if err != nil {
		return fmt.Errorf("failed to list unresolved references: %w", err)
	}
	if len(unresolved) == 0 {
		return nil
	}

	files, err := ix.store.ListFilesByRepository(repositoryID)
	if err != nil {
		return fmt.Errorf("failed to list repository files: %w", err)
	}
	allPaths := make([]string, 0, len(files))
	for _, f := range files {
		allPaths = append(allPaths, f.Path)
	}
	paths := newPathIndex(allPaths)

	return ix.store.WithTx(func(tx *sql.Tx) error {
		for _, ur := range unresolved {
			target := resolveReference(ur.Language, ur.FromPath, ur.ImportSource, modulePath, paths)
			if target == "" {
				continue
			}
			if err := store.UpdateReferenceTarget(tx, ur.ID, target); err != nil {
				return err
			}
		}
		return nil
	})
}

func relPathOf(root, absPath string) string {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}

func readFileQuiet(path string) []byte {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return content
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
