package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
	"kotadb/internal/kerrors"
	"kotadb/internal/query"
	"kotadb/internal/store"
	syncpkg "kotadb/internal/sync"
)

// RegisterCore wires the fixed, non-search catalog (§4.7) into reg: one
// tool per indexer/query/store/sync operation. Call RegisterSearch
// separately for the unified multi-scope search tool.
func RegisterCore(reg *Registry, st *store.Store, idx *indexer.Indexer, q *query.Service, sv *syncpkg.Service) error {
	tools := []*Tool{
		indexRepositoryTool(idx),
		listRecentFilesTool(st),
		searchDependenciesTool(q),
		analyzeChangeImpactTool(q),
		getDomainKeyFilesTool(q),
		recordDecisionTool(st),
		recordFailureTool(st),
		recordInsightTool(st),
		getRecentPatternsTool(st),
		validateImplementationSpecTool(st),
		generateTaskContextTool(st),
		kotaSyncExportTool(sv),
		kotaSyncImportTool(sv),
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func jsonResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

func indexRepositoryTool(idx *indexer.Indexer) *Tool {
	return &Tool{
		Name:        "index_repository",
		Description: "Fully index a repository's files, symbols, and references.",
		Tier:        TierCore,
		Schema: ToolSchema{
			Required: []string{"root", "full_name", "git_url"},
			Properties: map[string]Property{
				"root":      {Type: "string", Description: "Filesystem path to the repository root"},
				"full_name": {Type: "string", Description: "Repository's unique full name, e.g. org/repo"},
				"git_url":   {Type: "string", Description: "Repository's remote git URL"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			root := stringArg(args, "root", "")
			fullName := stringArg(args, "full_name", "")
			gitURL := stringArg(args, "git_url", "")
			result, err := idx.FullIndex(ctx, root, fullName, gitURL, extractor.WalkOptions{})
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}

func listRecentFilesTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "list_recent_files",
		Description: "List the most recently indexed files, newest first.",
		Tier:        TierCore,
		Schema: ToolSchema{
			Properties: map[string]Property{
				"repository_id": {Type: "string", Description: "Restrict to one repository"},
				"limit":         {Type: "integer", Description: "Maximum files to return", Default: 20},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			files, err := st.ListRecentFiles(stringArg(args, "repository_id", ""), intArg(args, "limit", 20))
			if err != nil {
				return "", err
			}
			return jsonResult(files)
		},
	}
}

func searchDependenciesTool(q *query.Service) *Tool {
	return &Tool{
		Name:        "search_dependencies",
		Description: "Traverse a file's dependency graph forward (dependencies) or backward (dependents).",
		Tier:        TierCore,
		Schema: ToolSchema{
			Required: []string{"file_id"},
			Properties: map[string]Property{
				"file_id":       {Type: "string", Description: "Starting file's id"},
				"direction":     {Type: "string", Description: "dependencies or dependents", Default: "dependencies", Enum: []any{"dependencies", "dependents"}},
				"depth":         {Type: "integer", Description: "Traversal depth, 1-5", Default: 1},
				"include_tests": {Type: "boolean", Description: "Include test-path results", Default: true},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileID := stringArg(args, "file_id", "")
			depth := intArg(args, "depth", 1)
			includeTests := boolArg(args, "include_tests", true)
			refTypes := stringSliceArg(args, "reference_types")

			var result *query.DependencyResult
			var err error
			if stringArg(args, "direction", "dependencies") == "dependents" {
				result, err = q.QueryDependents(fileID, depth, includeTests, refTypes)
			} else {
				result, err = q.QueryDependencies(fileID, depth, includeTests, refTypes)
			}
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}

// analyzeChangeImpactTool reports the files that would be affected by a
// change to file_id: the backward (dependents) traversal up to depth hops
// (default 5, the maximum), with test paths left out of the result, so a
// caller can see what else needs re-review before committing to the change.
func analyzeChangeImpactTool(q *query.Service) *Tool {
	return &Tool{
		Name:        "analyze_change_impact",
		Description: "Report the non-test files that depend on file_id, directly or transitively up to depth hops: the blast radius of a change.",
		Tier:        TierCore,
		Schema: ToolSchema{
			Required: []string{"file_id"},
			Properties: map[string]Property{
				"file_id": {Type: "string", Description: "File being changed"},
				"depth":   {Type: "integer", Description: "Traversal depth, 1-5", Default: 5},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileID := stringArg(args, "file_id", "")
			depth := intArg(args, "depth", 5)
			result, err := q.QueryDependents(fileID, depth, false, nil)
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}

func getDomainKeyFilesTool(q *query.Service) *Tool {
	return &Tool{
		Name:        "get_domain_key_files",
		Description: "Rank a repository's files within a domain by inbound-dependent count.",
		Tier:        TierCore,
		Schema: ToolSchema{
			Required: []string{"repository_id", "domain"},
			Properties: map[string]Property{
				"repository_id": {Type: "string", Description: "Repository to scope to"},
				"domain":        {Type: "string", Description: "Domain name, keyed against configured glob rules"},
				"limit":         {Type: "integer", Description: "Maximum files to return", Default: 10},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			result, err := q.GetDomainKeyFiles(
				stringArg(args, "repository_id", ""),
				stringArg(args, "domain", ""),
				domainGlobsFor(stringArg(args, "domain", "")),
				intArg(args, "limit", 10),
			)
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}

// domainGlobs is populated from config.QueryConfig.DomainRules at startup
// via SetDomainGlobs; left empty (matches everything) until configured.
var domainGlobs map[string][]string

// SetDomainGlobs injects the domain-to-path glob configuration consumed by
// get_domain_key_files.
func SetDomainGlobs(rules map[string][]string) {
	domainGlobs = rules
}

func domainGlobsFor(domain string) []string {
	return domainGlobs[domain]
}

func recordDecisionTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "record_decision",
		Description: "Record an architectural or convention decision with its rationale.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Required: []string{"title", "context", "decision", "scope"},
			Properties: map[string]Property{
				"repository_id": {Type: "string"},
				"title":         {Type: "string"},
				"context":       {Type: "string"},
				"decision":      {Type: "string"},
				"scope":         {Type: "string", Enum: []any{store.DecisionArchitecture, store.DecisionPattern, store.DecisionConvention, store.DecisionWorkaround}},
				"rationale":     {Type: "string"},
				"alternatives":  {Type: "array", Items: &PropertyItems{Type: "string"}},
				"related_files": {Type: "array", Items: &PropertyItems{Type: "string"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, err := st.InsertDecision(store.Decision{
				RepositoryID: stringArg(args, "repository_id", ""),
				Title:        stringArg(args, "title", ""),
				Context:      stringArg(args, "context", ""),
				DecisionText: stringArg(args, "decision", ""),
				Scope:        stringArg(args, "scope", ""),
				Rationale:    stringArg(args, "rationale", ""),
				Alternatives: stringSliceArg(args, "alternatives"),
				RelatedFiles: stringSliceArg(args, "related_files"),
			})
			if err != nil {
				return "", err
			}
			return jsonResult(map[string]string{"id": id})
		},
	}
}

func recordFailureTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "record_failure",
		Description: "Record an approach that was tried and didn't work.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Required: []string{"title", "problem", "approach", "failure_reason"},
			Properties: map[string]Property{
				"repository_id":  {Type: "string"},
				"title":          {Type: "string"},
				"problem":        {Type: "string"},
				"approach":       {Type: "string"},
				"failure_reason": {Type: "string"},
				"related_files":  {Type: "array", Items: &PropertyItems{Type: "string"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, err := st.InsertFailure(store.Failure{
				RepositoryID:  stringArg(args, "repository_id", ""),
				Title:         stringArg(args, "title", ""),
				Problem:       stringArg(args, "problem", ""),
				Approach:      stringArg(args, "approach", ""),
				FailureReason: stringArg(args, "failure_reason", ""),
				RelatedFiles:  stringSliceArg(args, "related_files"),
			})
			if err != nil {
				return "", err
			}
			return jsonResult(map[string]string{"id": id})
		},
	}
}

func recordInsightTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "record_insight",
		Description: "Record a freestanding observation from the current session.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Required: []string{"content", "insight_type"},
			Properties: map[string]Property{
				"session_id":   {Type: "string"},
				"content":      {Type: "string"},
				"insight_type": {Type: "string", Enum: []any{store.InsightDiscovery, store.InsightFailure, store.InsightWorkaround}},
				"related_file": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, err := st.InsertInsight(store.Insight{
				SessionID:   stringArg(args, "session_id", ""),
				Content:     stringArg(args, "content", ""),
				InsightType: stringArg(args, "insight_type", ""),
				RelatedFile: stringArg(args, "related_file", ""),
			})
			if err != nil {
				return "", err
			}
			return jsonResult(map[string]string{"id": id})
		},
	}
}

func getRecentPatternsTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "get_recent_patterns",
		Description: "List recorded implementation patterns, most recently recorded first.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Properties: map[string]Property{
				"pattern_type":  {Type: "string"},
				"file_path":     {Type: "string"},
				"repository_id": {Type: "string"},
				"limit":         {Type: "integer", Default: 20},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			patterns, err := st.SearchPatterns(
				stringArg(args, "pattern_type", ""),
				stringArg(args, "file_path", ""),
				stringArg(args, "repository_id", ""),
				intArg(args, "limit", 20),
			)
			if err != nil {
				return "", err
			}
			return jsonResult(patterns)
		},
	}
}

// ValidationFinding is one recorded failure whose related_files overlap a
// candidate implementation's file set, surfaced so a plan can avoid
// repeating a known-bad approach.
type ValidationFinding struct {
	Failure store.Failure `json:"failure"`
	Matched []string      `json:"matched_files"`
}

func validateImplementationSpecTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "validate_implementation_spec",
		Description: "Check a proposed set of file paths against recorded failures to avoid repeating a known-bad approach.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Required: []string{"repository_id", "file_paths"},
			Properties: map[string]Property{
				"repository_id": {Type: "string"},
				"file_paths":    {Type: "array", Items: &PropertyItems{Type: "string"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			repositoryID := stringArg(args, "repository_id", "")
			filePaths := stringSliceArg(args, "file_paths")

			failures, _, err := st.SearchFailures("", 100)
			if err != nil {
				return "", err
			}

			var findings []ValidationFinding
			for _, f := range failures {
				if repositoryID != "" && f.RepositoryID != repositoryID {
					continue
				}
				matched := intersect(f.RelatedFiles, filePaths)
				if len(matched) > 0 {
					findings = append(findings, ValidationFinding{Failure: f, Matched: matched})
				}
			}
			return jsonResult(findings)
		},
	}
}

// TaskContext is the composed memory relevant to a set of files, the
// payload generate_task_context hands to an ADW phase prompt.
type TaskContext struct {
	Decisions []store.Decision `json:"decisions"`
	Patterns  []store.Pattern  `json:"patterns"`
	Failures  []store.Failure  `json:"failures"`
}

func generateTaskContextTool(st *store.Store) *Tool {
	return &Tool{
		Name:        "generate_task_context",
		Description: "Compose recorded decisions, patterns, and failures relevant to a set of files.",
		Tier:        TierMemory,
		Schema: ToolSchema{
			Required: []string{"repository_id", "file_paths"},
			Properties: map[string]Property{
				"repository_id": {Type: "string"},
				"file_paths":    {Type: "array", Items: &PropertyItems{Type: "string"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			repositoryID := stringArg(args, "repository_id", "")
			filePaths := stringSliceArg(args, "file_paths")

			allDecisions, _, err := st.SearchDecisions("", 100)
			if err != nil {
				return "", err
			}
			allFailures, _, err := st.SearchFailures("", 100)
			if err != nil {
				return "", err
			}
			patterns, err := st.SearchPatterns("", "", repositoryID, 20)
			if err != nil {
				return "", err
			}

			out := TaskContext{Patterns: patterns}
			for _, d := range allDecisions {
				if repositoryID != "" && d.RepositoryID != repositoryID {
					continue
				}
				if len(intersect(d.RelatedFiles, filePaths)) > 0 {
					out.Decisions = append(out.Decisions, d)
				}
			}
			for _, f := range allFailures {
				if repositoryID != "" && f.RepositoryID != repositoryID {
					continue
				}
				if len(intersect(f.RelatedFiles, filePaths)) > 0 {
					out.Failures = append(out.Failures, f)
				}
			}
			return jsonResult(out)
		},
	}
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func kotaSyncExportTool(sv *syncpkg.Service) *Tool {
	return &Tool{
		Name:        "kota_sync_export",
		Description: "Export changed tables to JSONL for sharing, skipping tables unchanged since the last export.",
		Tier:        TierSync,
		Schema: ToolSchema{
			Properties: map[string]Property{
				"dir":   {Type: "string", Description: "Output directory for the JSONL files (default <cwd>/.kotadb/export)"},
				"force": {Type: "boolean", Description: "Export every table regardless of its content hash", Default: false},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir := stringArg(args, "dir", "")
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return "", err
				}
				dir = filepath.Join(cwd, ".kotadb", "export")
			}
			result, err := sv.Export(dir, boolArg(args, "force", false))
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}

func kotaSyncImportTool(sv *syncpkg.Service) *Tool {
	return &Tool{
		Name:        "kota_sync_import",
		Description: "Import a previously exported JSONL directory, applying its deletion manifest first.",
		Tier:        TierSync,
		Schema: ToolSchema{
			Required: []string{"dir"},
			Properties: map[string]Property{
				"dir": {Type: "string", Description: "Directory containing the exported JSONL files"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir := stringArg(args, "dir", "")
			if dir == "" {
				return "", fmt.Errorf("%w: dir", kerrors.ErrInvalidParams)
			}
			result, err := sv.Import(dir)
			if err != nil {
				return "", err
			}
			return jsonResult(result)
		},
	}
}
