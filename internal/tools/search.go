package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"kotadb/internal/kerrors"
	"kotadb/internal/query"
	"kotadb/internal/store"
)

// search scopes, per §4.7.1.
const (
	scopeCode      = "code"
	scopeSymbols   = "symbols"
	scopeDecisions = "decisions"
	scopePatterns  = "patterns"
	scopeFailures  = "failures"
)

var allScopes = []string{scopeCode, scopeSymbols, scopeDecisions, scopePatterns, scopeFailures}

// Output shapes for the search tool's results.
const (
	shapePaths   = "paths"
	shapeCompact = "compact"
	shapeSnippet = "snippet"
	shapeFull    = "full"
)

// SearchResponse is the search tool's response shape (§4.7.1): one result
// list per requested scope, plus counts and a static tip list.
type SearchResponse struct {
	Results map[string]any `json:"results"`
	Counts  SearchCounts   `json:"counts"`
	Tips    []string       `json:"tips,omitempty"`
}

// SearchCounts reports the total and per-scope hit counts.
type SearchCounts struct {
	Total    int            `json:"total"`
	PerScope map[string]int `json:"per_scope"`
}

// RegisterSearch wires the unified multi-scope search tool into reg.
func RegisterSearch(reg *Registry, st *store.Store, q *query.Service) error {
	return reg.Register(searchTool(st, q))
}

func searchTool(st *store.Store, q *query.Service) *Tool {
	return &Tool{
		Name:        "search",
		Description: "Search across code, symbols, decisions, patterns, and failures in one call.",
		Tier:        TierCore,
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query":         {Type: "string", Description: "Search term"},
				"scope":         {Type: "array", Description: "Scopes to search, default all", Items: &PropertyItems{Type: "string"}},
				"repository_id": {Type: "string"},
				"shape":         {Type: "string", Description: "paths, compact, snippet, or full", Enum: []any{shapePaths, shapeCompact, shapeSnippet, shapeFull}},
				"context_lines": {Type: "integer", Description: "Lines of context around a snippet match, 0-10", Default: 3},
				"limit":         {Type: "integer", Default: 20},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			term := stringArg(args, "query", "")
			repositoryID := stringArg(args, "repository_id", "")
			limit := intArg(args, "limit", 20)
			scopes := stringSliceArg(args, "scope")
			if len(scopes) == 0 {
				scopes = allScopes
			}
			if limit > 100 {
				limit = 100
			}
			contextLines := intArg(args, "context_lines", 3)
			if contextLines < 0 || contextLines > 10 {
				return "", fmt.Errorf("%w: context_lines must be in [0,10], got %d", kerrors.ErrInvalidParams, contextLines)
			}
			shape := stringArg(args, "shape", defaultShape(scopes))

			results := make(map[string]any, len(scopes))
			counts := make(map[string]int, len(scopes))
			var mu sync.Mutex
			g, _ := errgroup.WithContext(ctx)

			for _, scope := range scopes {
				scope := scope
				g.Go(func() error {
					res, n, err := runScope(st, q, scope, term, repositoryID, limit, shape, contextLines)
					if err != nil {
						return err
					}
					mu.Lock()
					results[scope] = res
					counts[scope] = n
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return "", err
			}

			total := 0
			for _, n := range counts {
				total += n
			}
			resp := SearchResponse{
				Results: results,
				Counts:  SearchCounts{Total: total, PerScope: counts},
				Tips:    searchTips(scopes, counts),
			}
			return jsonResult(resp)
		},
	}
}

// defaultShape picks "compact" when the only requested scope is code,
// "full" otherwise (§4.7.1).
func defaultShape(scopes []string) string {
	if len(scopes) == 1 && scopes[0] == scopeCode {
		return shapeCompact
	}
	return shapeFull
}

func runScope(st *store.Store, q *query.Service, scope, term, repositoryID string, limit int, shape string, contextLines int) (any, int, error) {
	switch scope {
	case scopeCode:
		hits, err := q.SearchFiles(term, repositoryID, limit)
		if err != nil {
			return nil, 0, err
		}
		return shapeCodeHits(hits, term, shape, contextLines), len(hits), nil
	case scopeSymbols:
		syms, err := st.SearchSymbolsByName(term, nil, false, repositoryID, limit)
		if err != nil {
			return nil, 0, err
		}
		return syms, len(syms), nil
	case scopeDecisions:
		decisions, _, err := st.SearchDecisions(term, limit)
		if err != nil {
			return nil, 0, err
		}
		return decisions, len(decisions), nil
	case scopePatterns:
		patterns, err := st.SearchPatterns("", "", repositoryID, limit)
		if err != nil {
			return nil, 0, err
		}
		patterns = filterPatternsByTerm(patterns, term)
		return patterns, len(patterns), nil
	case scopeFailures:
		failures, _, err := st.SearchFailures(term, limit)
		if err != nil {
			return nil, 0, err
		}
		return failures, len(failures), nil
	default:
		return nil, 0, nil
	}
}

// CodeHit is one code-scope search result, shaped per the requested output
// mode: paths mode drops everything but the path, compact keeps the
// snippet, snippet keeps the path plus the snippet narrowed by windowSnippet
// to ±context_lines around the first match, and full returns every field.
type CodeHit struct {
	Path         string   `json:"path"`
	Snippet      string   `json:"snippet,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	IndexedAt    string   `json:"indexed_at,omitempty"`
}

func shapeCodeHits(hits []query.FileHit, term, shape string, contextLines int) []CodeHit {
	out := make([]CodeHit, 0, len(hits))
	for _, h := range hits {
		switch shape {
		case shapePaths:
			out = append(out, CodeHit{Path: h.Path})
		case shapeCompact:
			out = append(out, CodeHit{Path: h.Path, Snippet: h.Snippet})
		case shapeSnippet:
			out = append(out, CodeHit{Path: h.Path, Snippet: windowSnippet(h.Snippet, term, contextLines)})
		default: // full
			out = append(out, CodeHit{Path: h.Path, Snippet: h.Snippet, Dependencies: h.Dependencies, IndexedAt: h.IndexedAt})
		}
	}
	return out
}

// windowSnippet narrows an already-extracted snippet to ±contextLines lines
// around the first line containing term, for snippet-mode results.
func windowSnippet(snippet, term string, contextLines int) string {
	if term == "" {
		return snippet
	}
	lines := strings.Split(snippet, "\n")
	match := -1
	for i, l := range lines {
		if strings.Contains(strings.ToLower(l), strings.ToLower(term)) {
			match = i
			break
		}
	}
	if match == -1 {
		return snippet
	}
	start := match - contextLines
	if start < 0 {
		start = 0
	}
	end := match + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func filterPatternsByTerm(patterns []store.Pattern, term string) []store.Pattern {
	if term == "" {
		return patterns
	}
	lower := strings.ToLower(term)
	out := make([]store.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if strings.Contains(strings.ToLower(p.Description), lower) || strings.Contains(strings.ToLower(p.PatternType), lower) {
			out = append(out, p)
		}
	}
	return out
}

// searchTips are static, rule-based hints surfaced alongside results; they
// never block a call or alter its data (§4.7.1).
func searchTips(scopes []string, counts map[string]int) []string {
	var tips []string
	if counts[scopeCode] == 0 && contains(scopes, scopeCode) {
		tips = append(tips, "no code matches; try a shorter or less specific query term")
	}
	if contains(scopes, scopeFailures) && counts[scopeFailures] > 0 {
		tips = append(tips, "recorded failures matched this term; review them before repeating an approach")
	}
	return tips
}

func contains(scopes []string, target string) bool {
	for _, s := range scopes {
		if s == target {
			return true
		}
	}
	return false
}
