package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/query"
	"kotadb/internal/store"
)

func newSearchFixture(t *testing.T) (*Registry, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repo, err := st.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	err = st.WithTx(func(tx *sql.Tx) error {
		_, err := st.UpsertFile(tx, store.File{
			RepositoryID: repo.ID,
			Path:         "widget.go",
			Language:     "go",
			Content:      "package widget\n\nfunc Widget() {}\n",
		})
		return err
	})
	require.NoError(t, err)

	_, err = st.InsertFailure(store.Failure{
		RepositoryID:  repo.ID,
		Title:         "tried widget cache",
		Problem:       "p",
		Approach:      "widget in-memory cache",
		FailureReason: "stale reads",
	})
	require.NoError(t, err)

	reg := NewRegistry()
	q := query.New(st)
	require.NoError(t, RegisterSearch(reg, st, q))
	return reg, repo.ID
}

func TestSearchDefaultsToAllScopes(t *testing.T) {
	reg, repoID := newSearchFixture(t)

	result, err := reg.Execute(context.Background(), "search", map[string]any{
		"query":         "widget",
		"repository_id": repoID,
	}, ToolsetCore)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(result.Result), &resp))
	assert.Contains(t, resp.Results, scopeCode)
	assert.Contains(t, resp.Results, scopeFailures)
	assert.Greater(t, resp.Counts.Total, 0)
}

func TestSearchRestrictsToRequestedScope(t *testing.T) {
	reg, repoID := newSearchFixture(t)

	result, err := reg.Execute(context.Background(), "search", map[string]any{
		"query":         "widget",
		"repository_id": repoID,
		"scope":         []any{"code"},
	}, ToolsetCore)
	require.NoError(t, err)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(result.Result), &resp))
	assert.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results, scopeCode)
}

func TestDefaultShapePicksCompactForCodeOnly(t *testing.T) {
	assert.Equal(t, shapeCompact, defaultShape([]string{scopeCode}))
	assert.Equal(t, shapeFull, defaultShape([]string{scopeCode, scopeFailures}))
	assert.Equal(t, shapeFull, defaultShape(allScopes))
}

func TestWindowSnippetNarrowsAroundMatch(t *testing.T) {
	snippet := "line1\nline2\nmatch here\nline4\nline5"
	got := windowSnippet(snippet, "match", 1)
	assert.Equal(t, "line2\nmatch here\nline4", got)
}

func TestSearchTipsFlagsFailureMatches(t *testing.T) {
	tips := searchTips([]string{scopeFailures}, map[string]int{scopeFailures: 1})
	require.Len(t, tips, 1)
	assert.Contains(t, tips[0], "recorded failures")
}
