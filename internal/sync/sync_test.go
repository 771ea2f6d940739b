package sync

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStore(t *testing.T, s *store.Store) (repoID, fileID string) {
	t.Helper()
	repo, err := s.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)
	repoID = repo.ID

	err = s.WithTx(func(tx *sql.Tx) error {
		f, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "main.go", Language: "go", Content: "package main"})
		if err != nil {
			return err
		}
		fileID = f.ID
		if err := store.InsertSymbol(tx, store.Symbol{FileID: f.ID, Name: "main", Kind: store.SymbolFunction, LineStart: 1, LineEnd: 3}); err != nil {
			return err
		}
		return store.InsertReference(tx, store.Reference{FileID: f.ID, TargetFilePath: "main.go", ReferenceType: store.ReferenceImport})
	})
	require.NoError(t, err)

	_, err = s.InsertDecision(store.Decision{RepositoryID: repoID, Title: "use sqlite", Context: "ctx", DecisionText: "sqlite", Scope: store.DecisionArchitecture})
	require.NoError(t, err)
	_, err = s.InsertFailure(store.Failure{RepositoryID: repoID, Title: "tried X", Problem: "p", Approach: "a", FailureReason: "r"})
	require.NoError(t, err)
	_, err = s.UpsertPattern(store.Pattern{RepositoryID: repoID, PatternType: "worker-pool", Description: "bounded concurrency"})
	require.NoError(t, err)
	_, err = s.InsertInsight(store.Insight{Content: "interesting", InsightType: store.InsightDiscovery})
	require.NoError(t, err)
	_, err = s.UpsertWorkflowContext(store.WorkflowContext{WorkflowID: "wf1", Phase: store.PhaseAnalysis, ContextData: "{}"})
	require.NoError(t, err)

	return repoID, fileID
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openTestStore(t)
	seedStore(t, src)

	dir := t.TempDir()
	svc := New(src)
	exportResult, err := svc.Export(dir, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, store.SyncableTables(), exportResult.TablesExported)
	assert.Equal(t, 1, exportResult.RowsExported["repositories"])
	assert.Equal(t, 1, exportResult.RowsExported["files"])
	assert.Equal(t, 1, exportResult.RowsExported["symbols"])

	dst := openTestStore(t)
	importSvc := New(dst)
	importResult, err := importSvc.Import(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, store.SyncableTables(), importResult.TablesImported)

	srcStats, err := src.GetStats()
	require.NoError(t, err)
	dstStats, err := dst.GetStats()
	require.NoError(t, err)
	assert.Equal(t, srcStats, dstStats)

	files, err := dst.ListAllFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestExportSkipsUnchangedTableUnlessForced(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s)

	dir := t.TempDir()
	svc := New(s)
	first, err := svc.Export(dir, false)
	require.NoError(t, err)
	assert.Contains(t, first.TablesExported, "repositories")

	second, err := svc.Export(dir, false)
	require.NoError(t, err)
	assert.Contains(t, second.TablesSkipped, "repositories")
	assert.NotContains(t, second.TablesExported, "repositories")

	forced, err := svc.Export(dir, true)
	require.NoError(t, err)
	assert.Contains(t, forced.TablesExported, "repositories")
}

func TestExportImportReplaysDeletions(t *testing.T) {
	src := openTestStore(t)
	_, fileID := seedStore(t, src)

	dir := t.TempDir()
	svc := New(src)
	_, err := svc.Export(dir, false)
	require.NoError(t, err)

	dst := openTestStore(t)
	_, err = New(dst).Import(dir)
	require.NoError(t, err)

	err = src.WithTx(func(tx *sql.Tx) error {
		return src.DeleteFile(tx, fileID)
	})
	require.NoError(t, err)

	_, err = svc.Export(dir, false)
	require.NoError(t, err)

	importResult, err := New(dst).Import(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, importResult.Deletions, "deleting the file cascades to its symbol and reference, each tombstoned")

	files, err := dst.ListAllFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}
