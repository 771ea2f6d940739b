package adw

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-b", "develop")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")
	return dir
}

func TestWorktreeManagerCreateAndExists(t *testing.T) {
	root := initTestRepo(t)
	m := NewWorktreeManager(root, "develop")

	wt, err := m.Create(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, wt.Path, ".worktrees")
	assert.Contains(t, wt.Branch, "automation/7-")

	exists, err := m.Exists(context.Background(), wt.Path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWorktreeManagerRemoveIsNoopWhenAbsent(t *testing.T) {
	root := initTestRepo(t)
	m := NewWorktreeManager(root, "develop")

	err := m.Remove(context.Background(), &Worktree{Path: filepath.Join(root, ".worktrees", "missing"), Branch: "automation/missing"}, false, false)
	assert.NoError(t, err)
}

func TestWorktreeManagerCreateThenRemove(t *testing.T) {
	root := initTestRepo(t)
	m := NewWorktreeManager(root, "develop")

	wt, err := m.Create(context.Background(), 9)
	require.NoError(t, err)

	require.NoError(t, m.Remove(context.Background(), wt, true, true))

	exists, err := m.Exists(context.Background(), wt.Path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIsoStampReplacesColons(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stamp := isoStamp(ts)
	assert.NotContains(t, stamp, ":")
	assert.Contains(t, stamp, "2026-01-02")
}

func TestNewWorktreeManagerDefaultsBaseBranch(t *testing.T) {
	m := NewWorktreeManager("/tmp/repo", "")
	assert.Equal(t, "develop", m.baseBranch)
}
