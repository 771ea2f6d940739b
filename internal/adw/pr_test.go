package adw

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/kerrors"
)

func TestBodyIncludesAllRequiredSections(t *testing.T) {
	body := Body("adds a widget endpoint", []ValidationResult{
		{Command: "go test ./...", Passed: true},
	}, Metrics{FilesModified: 3, DurationMs: 500, CostUsd: 0.02}, 42)

	assert.Contains(t, body, "## Summary")
	assert.Contains(t, body, "## Validation Evidence")
	assert.Contains(t, body, "PASSED")
	assert.Contains(t, body, "## Anti-Mock Declaration")
	assert.Contains(t, body, "## Metrics")
	assert.Contains(t, body, "Closes #42")
}

func TestClassifyPushErrorDetectsTransientHints(t *testing.T) {
	err := classifyPushError("fatal: Connection reset by peer", errors.New("exit status 128"))
	assert.True(t, errors.Is(err, kerrors.ErrTransient))
}

func TestClassifyPushErrorNonTransient(t *testing.T) {
	err := classifyPushError("! [rejected] develop -> develop (non-fast-forward)", errors.New("exit status 1"))
	assert.False(t, errors.Is(err, kerrors.ErrTransient))
}

func TestParsePRNumberFromTitle(t *testing.T) {
	n, ok := parsePRNumberFromTitle("Implement widget export (#123)")
	assert.True(t, ok)
	assert.Equal(t, 123, n)

	_, ok = parsePRNumberFromTitle("no issue reference here")
	assert.False(t, ok)
}

func TestNewGitHubClientNilWithoutToken(t *testing.T) {
	assert.Nil(t, NewGitHubClient(""))
	assert.NotNil(t, NewGitHubClient("ghp_faketoken"))
}

func TestPRModuleStageCommit(t *testing.T) {
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget.go"), []byte("package widget\n"), 0o644))

	mod := NewPRModule(dir, "acme", "widgets", "develop", nil, kerrors.BackoffParams{})
	require.NoError(t, mod.Stage(context.Background(), []string{"widget.go"}))
	require.NoError(t, mod.Commit(context.Background(), "feat", "widgets", 7))

	log := exec.Command("git", "log", "--oneline", "-1")
	log.Dir = dir
	out, err := log.CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "feat(widgets): implement issue #7")
}

func TestPRModuleOpenWithoutClientErrors(t *testing.T) {
	mod := NewPRModule(t.TempDir(), "acme", "widgets", "develop", nil, kerrors.BackoffParams{})
	_, err := mod.Open(context.Background(), "automation/1", "title", "body")
	assert.ErrorIs(t, err, kerrors.ErrInvalidParams)
}
