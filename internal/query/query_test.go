package query

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

func TestSearchFilesBoostsPathMatchesAndListsDependencies(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	err = s.WithTx(func(tx *sql.Tx) error {
		_, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "widget/handler.go", Language: "go", Content: "package widget"})
		if err != nil {
			return err
		}
		f, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "other.go", Language: "go", Content: "// mentions widget in a comment"})
		if err != nil {
			return err
		}
		return store.InsertReference(tx, store.Reference{FileID: f.ID, TargetFilePath: "widget/handler.go", ReferenceType: store.ReferenceImport})
	})
	require.NoError(t, err)

	svc := New(s)
	hits, err := svc.SearchFiles("widget", repo.ID, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "widget/handler.go", hits[0].Path, "path match should be boosted above content-only match")

	otherHit := hits[1]
	require.Len(t, otherHit.Dependencies, 1)
	assert.Equal(t, "widget/handler.go", otherHit.Dependencies[0])
}

func TestResolveFilePath(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	var fileID string
	err = s.WithTx(func(tx *sql.Tx) error {
		f, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "main.go", Language: "go"})
		fileID = f.ID
		return err
	})
	require.NoError(t, err)

	svc := New(s)
	id, err := svc.ResolveFilePath("main.go", repo.ID)
	require.NoError(t, err)
	assert.Equal(t, fileID, id)

	id, err = svc.ResolveFilePath("missing.go", repo.ID)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestQueryDependentsFiltersTestPaths(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	var libID string
	err = s.WithTx(func(tx *sql.Tx) error {
		lib, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "lib.go", Language: "go"})
		if err != nil {
			return err
		}
		libID = lib.ID
		main, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "main.go", Language: "go"})
		if err != nil {
			return err
		}
		test, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "lib.test.go", Language: "go"})
		if err != nil {
			return err
		}
		if err := store.InsertReference(tx, store.Reference{FileID: main.ID, TargetFilePath: "lib.go", ReferenceType: store.ReferenceImport}); err != nil {
			return err
		}
		return store.InsertReference(tx, store.Reference{FileID: test.ID, TargetFilePath: "lib.go", ReferenceType: store.ReferenceImport})
	})
	require.NoError(t, err)

	svc := New(s)
	withoutTests, err := svc.QueryDependents(libID, 1, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, withoutTests.Direct)

	withTests, err := svc.QueryDependents(libID, 1, true, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "lib.test.go"}, withTests.Direct)
}

func TestGetDomainKeyFilesFiltersByGlobAndRanksByInboundCount(t *testing.T) {
	s := openTestStore(t)
	repo, err := s.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	err = s.WithTx(func(tx *sql.Tx) error {
		for _, p := range []string{"api/handler.go", "api/router.go", "internal/util.go"} {
			if _, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: p, Language: "go"}); err != nil {
				return err
			}
		}
		caller, err := s.UpsertFile(tx, store.File{RepositoryID: repo.ID, Path: "cmd/main.go", Language: "go"})
		if err != nil {
			return err
		}
		refs := []string{"api/handler.go", "api/handler.go", "api/router.go"}
		for _, target := range refs {
			if err := store.InsertReference(tx, store.Reference{FileID: caller.ID, TargetFilePath: target, ReferenceType: store.ReferenceImport}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	svc := New(s)
	results, err := svc.GetDomainKeyFiles(repo.ID, "api", []string{"api/*"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "api/handler.go", results[0].Path)
	assert.Equal(t, 2, results[0].InboundCount)
}
