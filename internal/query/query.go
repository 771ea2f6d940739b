// Package query implements the code-intelligence search and dependency
// traversal operations layered over the store.
package query

import (
	"errors"
	"path"
	"sort"
	"strings"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// Service is the query layer over a Store.
type Service struct {
	store *store.Store
}

// New builds a query Service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// FileHit is one search_files result.
type FileHit struct {
	Path         string
	Snippet      string
	Dependencies []string
	IndexedAt    string
}

// SearchFiles finds files by path or content, boosting path matches; ties
// broken by indexed_at descending (already applied by the store query).
func (q *Service) SearchFiles(term, repositoryID string, limit int) ([]FileHit, error) {
	files, err := q.store.SearchFiles(term, repositoryID, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]FileHit, 0, len(files))
	for _, f := range files {
		refs, err := q.store.ReferencesFromFile(f.ID)
		if err != nil {
			return nil, err
		}
		deps := make([]string, 0, len(refs))
		for _, r := range refs {
			if r.TargetFilePath != "" {
				deps = append(deps, r.TargetFilePath)
			}
		}
		hits = append(hits, FileHit{
			Path:         f.Path,
			Snippet:      snippetAround(f.Content, term),
			Dependencies: deps,
			IndexedAt:    f.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return hits, nil
}

// SearchSymbols delegates straight to the store's name-substring search.
func (q *Service) SearchSymbols(term string, kinds []string, exportedOnly bool, repositoryID string, limit int) ([]store.Symbol, error) {
	return q.store.SearchSymbolsByName(term, kinds, exportedOnly, repositoryID, limit)
}

// SearchDecisions delegates to the store's BM25-ranked FTS search.
func (q *Service) SearchDecisions(term string, limit int) ([]store.Decision, []float64, error) {
	return q.store.SearchDecisions(term, limit)
}

// SearchFailures delegates to the store's BM25-ranked FTS search.
func (q *Service) SearchFailures(term string, limit int) ([]store.Failure, []float64, error) {
	return q.store.SearchFailures(term, limit)
}

// SearchPatterns delegates to the store's most-recent-first pattern search.
func (q *Service) SearchPatterns(patternType, filePath, repositoryID string, limit int) ([]store.Pattern, error) {
	return q.store.SearchPatterns(patternType, filePath, repositoryID, limit)
}

// ResolveFilePath returns the file_id for filePath within repositoryID, or
// "" if no such file is indexed.
func (q *Service) ResolveFilePath(filePath, repositoryID string) (string, error) {
	f, err := q.store.GetFileByPath(repositoryID, filePath)
	if err != nil {
		if errors.Is(err, kerrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return f.ID, nil
}

// DependencyResult is the query_dependents/query_dependencies response
// shape, after include_tests filtering has been applied to Direct/Indirect.
type DependencyResult struct {
	Direct            []string
	Indirect          map[int][]string
	Cycles            [][]string
	UnresolvedImports []string
}

// QueryDependents runs a backward traversal (incoming references) from
// fileID, filtering test files out of the reported results (not the
// traversal frontier) when includeTests is false.
func (q *Service) QueryDependents(fileID string, depth int, includeTests bool, referenceTypes []string) (*DependencyResult, error) {
	raw, err := q.store.QueryDependents(fileID, depth, referenceTypes)
	if err != nil {
		return nil, err
	}
	return filterTraversal(raw, includeTests), nil
}

// QueryDependencies runs a forward traversal (outgoing references) from
// fileID, with the same include_tests result filtering.
func (q *Service) QueryDependencies(fileID string, depth int, includeTests bool, referenceTypes []string) (*DependencyResult, error) {
	raw, err := q.store.QueryDependencies(fileID, depth, referenceTypes)
	if err != nil {
		return nil, err
	}
	return filterTraversal(raw, includeTests), nil
}

func filterTraversal(raw *store.TraversalResult, includeTests bool) *DependencyResult {
	result := &DependencyResult{
		Direct:            filterTestPaths(raw.Direct, includeTests),
		Indirect:          make(map[int][]string, len(raw.Indirect)),
		Cycles:            raw.Cycles,
		UnresolvedImports: raw.UnresolvedImports,
	}
	for depth, paths := range raw.Indirect {
		result.Indirect[depth] = filterTestPaths(paths, includeTests)
	}
	return result
}

var testPathMarkers = []string{".test.", ".spec.", "/tests/", "/__tests__/"}

func isTestPath(p string) bool {
	for _, marker := range testPathMarkers {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

func filterTestPaths(paths []string, includeTests bool) []string {
	if includeTests {
		return paths
	}
	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		if !isTestPath(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// DomainKeyFile is one get_domain_key_files result.
type DomainKeyFile struct {
	Path         string
	InboundCount int
}

// GetDomainKeyFiles ranks a repository's files by inbound-dependent count,
// filtered to paths matching one of domainGlobs, ties broken lexically.
func (q *Service) GetDomainKeyFiles(repositoryID, domain string, domainGlobs []string, limit int) ([]DomainKeyFile, error) {
	counts, err := q.store.InboundReferenceCounts(repositoryID)
	if err != nil {
		return nil, err
	}

	var matches []DomainKeyFile
	for filePath, count := range counts {
		if !matchesAnyGlob(filePath, domainGlobs) {
			continue
		}
		matches = append(matches, DomainKeyFile{Path: filePath, InboundCount: count})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].InboundCount != matches[j].InboundCount {
			return matches[i].InboundCount > matches[j].InboundCount
		}
		return matches[i].Path < matches[j].Path
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	logging.QueryDebug("get_domain_key_files(%s): %d candidates, %d matched domain %q", repositoryID, len(counts), len(matches), domain)
	return matches, nil
}

func matchesAnyGlob(filePath string, globs []string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, err := path.Match(g, filePath); err == nil && ok {
			return true
		}
	}
	return false
}

func snippetAround(content, term string) string {
	const radius = 80
	idx := strings.Index(strings.ToLower(content), strings.ToLower(term))
	if idx == -1 {
		if len(content) > 2*radius {
			return content[:2*radius]
		}
		return content
	}
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + len(term) + radius
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}
