package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.GetStats()
	require.NoError(t, err)

	for _, table := range []string{"repositories", "files", "symbols", "references", "decisions", "failures", "patterns", "insights", "workflow_contexts"} {
		_, ok := stats[table]
		assert.True(t, ok, "stats missing table %s", table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	first, err := Migrate(s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, first.ToVersion)

	second, err := Migrate(s.db)
	require.NoError(t, err)
	assert.Equal(t, 0, second.MigrationsRun, "re-running migrations should apply nothing new")
}

func TestUpsertRepositoryIsIdempotentByFullName(t *testing.T) {
	s := openTestStore(t)

	r1, err := s.UpsertRepository("local/kotadb", "/repo")
	require.NoError(t, err)

	r2, err := s.UpsertRepository("local/kotadb", "/repo")
	require.NoError(t, err)

	assert.Equal(t, r1.ID, r2.ID)
}

func TestFileUpsertAndCascadeDelete(t *testing.T) {
	s := openTestStore(t)

	repo, err := s.UpsertRepository("local/kotadb", "/repo")
	require.NoError(t, err)

	var fileID string
	err = s.WithTx(func(tx *sql.Tx) error {
		f, err := s.UpsertFile(tx, File{
			RepositoryID: repo.ID,
			Path:         "main.go",
			Language:     "go",
			ContentHash:  "abc123",
			Size:         42,
			Content:      "package main",
		})
		if err != nil {
			return err
		}
		fileID = f.ID
		return InsertSymbol(tx, Symbol{FileID: f.ID, Name: "main", Kind: SymbolFunction, LineStart: 1, LineEnd: 3})
	})
	require.NoError(t, err)

	symbols, err := s.SearchSymbolsByName("main", nil, false, repo.ID, 10)
	require.NoError(t, err)
	assert.Len(t, symbols, 1)

	err = s.WithTx(func(tx *sql.Tx) error {
		return s.DeleteFile(tx, fileID)
	})
	require.NoError(t, err)

	symbols, err = s.SearchSymbolsByName("main", nil, false, repo.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, symbols, "symbols should CASCADE-delete with their file")
}

func TestDecisionFTSSearch(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertDecision(Decision{
		Title:        "Use SQLite for storage",
		Context:      "Need embedded persistence without an external service",
		DecisionText: "Adopt mattn/go-sqlite3 with WAL mode",
		Scope:        DecisionArchitecture,
	})
	require.NoError(t, err)

	results, scores, err := s.SearchDecisions("sqlite", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Use SQLite for storage", results[0].Title)
	assert.GreaterOrEqual(t, scores[0], 0.0)
}

func TestFailureFTSSearch(t *testing.T) {
	s := openTestStore(t)

	_, err := s.InsertFailure(Failure{
		Title:         "Tried in-memory vector index",
		Problem:       "semantic search over decisions",
		Approach:      "build a custom ANN index in process",
		FailureReason: "too slow to rebuild on every write",
	})
	require.NoError(t, err)

	results, _, err := s.SearchFailures("vector", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Tried in-memory vector index", results[0].Title)
}

func TestPatternUpsertByType(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.UpsertPattern(Pattern{PatternType: "storage:single-writer", Description: "one conn, one writer"})
	require.NoError(t, err)

	id2, err := s.UpsertPattern(Pattern{PatternType: "storage:single-writer", Description: "updated description"})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	patterns, err := s.SearchPatterns("storage:single-writer", "", "", 10)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "updated description", patterns[0].Description)
}

func TestWorkflowContextUpsertByWorkflowAndPhase(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpsertWorkflowContext(WorkflowContext{WorkflowID: "wf-1", Phase: PhaseAnalysis, ContextData: `{"summary":"first"}`})
	require.NoError(t, err)

	_, err = s.UpsertWorkflowContext(WorkflowContext{WorkflowID: "wf-1", Phase: PhaseAnalysis, ContextData: `{"summary":"second"}`})
	require.NoError(t, err)

	wc, err := s.GetWorkflowContext("wf-1", PhaseAnalysis)
	require.NoError(t, err)
	require.NotNil(t, wc)
	assert.Equal(t, `{"summary":"second"}`, wc.ContextData)
}

func TestGetRepositoryNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRepository("does-not-exist")
	assert.Error(t, err)
}
