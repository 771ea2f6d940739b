package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// DefaultMaxFileSize is the ceiling (in bytes) above which a file is
// indexed for path and hash only, per §4.3's size policy.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

var defaultIgnoredDirs = map[string]bool{
	".git":         true,
	".kotadb":      true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// WalkOptions configures a workspace walk.
type WalkOptions struct {
	// MaxFileSize overrides DefaultMaxFileSize when non-zero.
	MaxFileSize int64
	// IgnoreDirs adds directory names to skip, beyond the built-in set.
	IgnoreDirs []string
}

// Extracted is one file's walk result: its content hash and extracted
// symbols/references, ready for the indexer to upsert.
type Extracted struct {
	Path        string
	Language    string
	ContentHash string
	Size        int64
	Content     string
	Symbols     []store.Symbol
	References  []store.Reference
	// Skipped is true when the file exceeded MaxFileSize; Symbols and
	// References are empty and Content is not populated in that case.
	Skipped bool
}

// ParseFailure records a single file's extraction failure; per §4.3's
// failure policy a parse failure fails that file only.
type ParseFailure struct {
	Path string
	Err  error
}

// Walk enumerates every file under root whose extension has a registered
// extractor, hashing and extracting each with a bounded worker pool sized
// to runtime.NumCPU(). Files without a registered extractor are skipped
// silently; a parse failure on one file is recorded in the returned
// failures slice and does not stop the walk.
func Walk(ctx context.Context, root string, factory *Factory, opts WalkOptions) ([]Extracted, []ParseFailure, error) {
	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	ignored := make(map[string]bool, len(defaultIgnoredDirs)+len(opts.IgnoreDirs))
	for k, v := range defaultIgnoredDirs {
		ignored[k] = v
	}
	for _, d := range opts.IgnoreDirs {
		ignored[d] = true
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  []Extracted
		failures []ParseFailure
	)
	sem := make(chan struct{}, runtime.NumCPU())

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || ignored[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !factory.HasExtractor(path) {
			return nil
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			extracted, failure := extractFile(factory, path, maxSize)
			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				failures = append(failures, *failure)
				return
			}
			results = append(results, *extracted)
		}(path)
		return nil
	})
	wg.Wait()

	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk failed: %w", walkErr)
	}
	logging.ExtractorDebug("walk of %s complete: %d extracted, %d failed", root, len(results), len(failures))
	return results, failures, nil
}

func extractFile(factory *Factory, path string, maxSize int64) (*Extracted, *ParseFailure) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ParseFailure{Path: path, Err: fmt.Errorf("stat failed: %w", err)}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseFailure{Path: path, Err: fmt.Errorf("read failed: %w", err)}
	}
	hash := sha256.Sum256(content)

	extractor := factory.ExtractorFor(path)
	result := &Extracted{
		Path:        path,
		Language:    extractor.Language(),
		ContentHash: hex.EncodeToString(hash[:]),
		Size:        info.Size(),
	}

	if info.Size() > maxSize {
		result.Skipped = true
		logging.ExtractorWarn("skipping symbol/reference extraction for %s: %d bytes exceeds ceiling", path, info.Size())
		return result, nil
	}

	symbols, refs, err := extractor.Extract(path, content)
	if err != nil {
		logging.ExtractorWarn("extraction failed for %s: %v", path, err)
		return nil, &ParseFailure{Path: path, Err: err}
	}

	result.Content = string(content)
	result.Symbols = symbols
	result.References = refs
	return result, nil
}
