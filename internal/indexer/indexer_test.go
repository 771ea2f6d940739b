package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/extractor"
	"kotadb/internal/store"
)

func newTestIndexer(t *testing.T) (*Indexer, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, extractor.NewFactory()), s
}

func writeTestFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFullIndexResolvesGoReferences(t *testing.T) {
	ix, s := newTestIndexer(t)
	root := t.TempDir()

	writeTestFile(t, root, "go.mod", "module example.com/widget\n\ngo 1.22\n")
	writeTestFile(t, root, "main.go", "package main\n\nimport \"example.com/widget/lib\"\n\nfunc main() {\n\tlib.Run()\n}\n")
	writeTestFile(t, root, "lib/lib.go", "package lib\n\nfunc Run() {}\n")

	result, err := ix.FullIndex(context.Background(), root, "local/widget", root, extractor.WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesIndexed, "go.mod has no registered extractor and is not counted")

	mainFile, err := s.GetFileByPath(result.Repository.ID, "main.go")
	require.NoError(t, err)
	refs, err := s.ReferencesFromFile(mainFile.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "lib/lib.go", refs[0].TargetFilePath)

	repo, err := s.GetRepository(result.Repository.ID)
	require.NoError(t, err)
	assert.NotNil(t, repo.LastIndexedAt)
}

func TestIncrementalIndexResolvesNewlyAddedFile(t *testing.T) {
	ix, s := newTestIndexer(t)
	root := t.TempDir()

	writeTestFile(t, root, "go.mod", "module example.com/widget\n\ngo 1.22\n")
	writeTestFile(t, root, "main.go", "package main\n\nimport \"example.com/widget/lib\"\n\nfunc main() {}\n")

	result, err := ix.FullIndex(context.Background(), root, "local/widget", root, extractor.WalkOptions{})
	require.NoError(t, err)

	mainFile, err := s.GetFileByPath(result.Repository.ID, "main.go")
	require.NoError(t, err)
	refs, err := s.ReferencesFromFile(mainFile.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Empty(t, refs[0].TargetFilePath, "lib package doesn't exist yet")

	writeTestFile(t, root, "lib/lib.go", "package lib\n\nfunc Run() {}\n")
	_, err = ix.Incremental(context.Background(), root, result.Repository, []string{"lib/lib.go"}, nil)
	require.NoError(t, err)

	refs, err = s.ReferencesFromFile(mainFile.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "lib/lib.go", refs[0].TargetFilePath, "previously-dangling import should resolve once lib.go appears")
}

func TestIncrementalIndexDeletesFile(t *testing.T) {
	ix, s := newTestIndexer(t)
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	result, err := ix.FullIndex(context.Background(), root, "local/widget", root, extractor.WalkOptions{})
	require.NoError(t, err)

	_, err = ix.Incremental(context.Background(), root, result.Repository, nil, []string{"main.go"})
	require.NoError(t, err)

	_, err = s.GetFileByPath(result.Repository.ID, "main.go")
	assert.Error(t, err)
}
