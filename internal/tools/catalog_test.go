package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
	"kotadb/internal/query"
	"kotadb/internal/store"
	syncpkg "kotadb/internal/sync"
)

type catalogFixture struct {
	st   *store.Store
	idx  *indexer.Indexer
	q    *query.Service
	sv   *syncpkg.Service
	reg  *Registry
	repo string
	file string
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := indexer.New(st, extractor.NewFactory())
	q := query.New(st)
	sv := syncpkg.New(st)
	reg := NewRegistry()
	require.NoError(t, RegisterCore(reg, st, idx, q, sv))
	require.NoError(t, RegisterSearch(reg, st, q))

	repo, err := st.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	var fileID string
	err = st.WithTx(func(tx *sql.Tx) error {
		f, err := st.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "main.go", Language: "go", Content: "package main"})
		if err != nil {
			return err
		}
		fileID = f.ID
		return nil
	})
	require.NoError(t, err)

	return &catalogFixture{st: st, idx: idx, q: q, sv: sv, reg: reg, repo: repo.ID, file: fileID}
}

func TestCatalogRegistersCoreAndSearchTools(t *testing.T) {
	fx := newCatalogFixture(t)

	expected := []string{
		"index_repository", "list_recent_files", "search_dependencies",
		"analyze_change_impact", "get_domain_key_files", "record_decision",
		"record_failure", "record_insight", "get_recent_patterns",
		"validate_implementation_spec", "generate_task_context",
		"kota_sync_export", "kota_sync_import", "search",
	}
	for _, name := range expected {
		assert.True(t, fx.reg.Has(name), "expected tool %s to be registered", name)
	}
	assert.False(t, fx.reg.Has("validate_expertise"), "validate_expertise is registered by the adw package, not here")
	assert.False(t, fx.reg.Has("sync_expertise"), "sync_expertise is registered by the adw package, not here")
}

func TestRecordDecisionTool(t *testing.T) {
	fx := newCatalogFixture(t)

	result, err := fx.reg.Execute(context.Background(), "record_decision", map[string]any{
		"repository_id": fx.repo,
		"title":         "use sqlite",
		"context":       "need embedded storage",
		"decision":      "use mattn/go-sqlite3",
		"scope":         store.DecisionArchitecture,
	}, ToolsetMemory)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())

	decisions, _, err := fx.st.SearchDecisions("sqlite", 10)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)
}

func TestListRecentFilesTool(t *testing.T) {
	fx := newCatalogFixture(t)

	result, err := fx.reg.Execute(context.Background(), "list_recent_files", map[string]any{
		"repository_id": fx.repo,
		"limit":         5,
	}, ToolsetCore)
	require.NoError(t, err)

	var files []*store.File
	require.NoError(t, json.Unmarshal([]byte(result.Result), &files))
	assert.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestValidateImplementationSpecFindsMatchingFailure(t *testing.T) {
	fx := newCatalogFixture(t)

	_, err := fx.st.InsertFailure(store.Failure{
		RepositoryID:  fx.repo,
		Title:         "tried global mutex",
		Problem:       "contention",
		Approach:      "single global lock",
		FailureReason: "serialized every request",
		RelatedFiles:  []string{"main.go"},
	})
	require.NoError(t, err)

	result, err := fx.reg.Execute(context.Background(), "validate_implementation_spec", map[string]any{
		"repository_id": fx.repo,
		"file_paths":    []any{"main.go", "other.go"},
	}, ToolsetMemory)
	require.NoError(t, err)

	var findings []ValidationFinding
	require.NoError(t, json.Unmarshal([]byte(result.Result), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"main.go"}, findings[0].Matched)
}

func TestKotaSyncExportImportRoundTripViaTools(t *testing.T) {
	fx := newCatalogFixture(t)
	dir := t.TempDir()

	exportResult, err := fx.reg.Execute(context.Background(), "kota_sync_export", map[string]any{"dir": dir}, ToolsetDefault)
	require.NoError(t, err)
	assert.True(t, exportResult.IsSuccess())

	_, err = os.Stat(filepath.Join(dir, "files.jsonl"))
	assert.NoError(t, err)

	importResult, err := fx.reg.Execute(context.Background(), "kota_sync_import", map[string]any{"dir": dir}, ToolsetDefault)
	require.NoError(t, err)
	assert.True(t, importResult.IsSuccess())
}

func TestSyncToolsRejectedOutsideDefaultToolset(t *testing.T) {
	fx := newCatalogFixture(t)
	_, err := fx.reg.Execute(context.Background(), "kota_sync_export", map[string]any{"dir": t.TempDir()}, ToolsetCore)
	assert.Error(t, err)
}

func TestIndexRepositoryTool(t *testing.T) {
	fx := newCatalogFixture(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/w\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.go"), []byte("package main\n\nfunc Run() {}\n"), 0o644))

	result, err := fx.reg.Execute(context.Background(), "index_repository", map[string]any{
		"root":      root,
		"full_name": "local/other",
		"git_url":   root,
	}, ToolsetCore)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())

	var idxResult indexer.Result
	require.NoError(t, json.Unmarshal([]byte(result.Result), &idxResult))
	assert.Equal(t, 1, idxResult.FilesIndexed)
}
