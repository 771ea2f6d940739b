package adw

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/kerrors"
)

type fakeGitHubClient struct {
	created *github.PullRequest
}

func (f *fakeGitHubClient) CreatePullRequest(ctx context.Context, owner, repo string, req *github.NewPullRequest) (*github.PullRequest, error) {
	f.created = &github.PullRequest{
		Number:  github.Ptr(1),
		HTMLURL: github.Ptr("https://example.com/acme/widgets/pull/1"),
	}
	return f.created, nil
}

func (f *fakeGitHubClient) GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*github.PullRequest, error) {
	return nil, nil
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

func initOrchestratorRepo(t *testing.T) (workRepo, remote string) {
	t.Helper()
	workRepo = t.TempDir()
	remote = t.TempDir()

	runGit(t, remote, "init", "--bare", "-b", "develop")

	runGit(t, workRepo, "init", "-b", "develop")
	runGit(t, workRepo, "config", "user.email", "test@example.com")
	runGit(t, workRepo, "config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(workRepo, "README.md"), []byte("hi\n"), 0o644))
	runGit(t, workRepo, "add", "README.md")
	runGit(t, workRepo, "commit", "-m", "initial commit")
	runGit(t, workRepo, "remote", "add", "origin", remote)
	runGit(t, workRepo, "push", "-u", "origin", "develop")
	return workRepo, remote
}

func TestOrchestratorRunCompletesAllPhasesAndOpensAPR(t *testing.T) {
	root, _ := initOrchestratorRepo(t)

	checkpointDir := filepath.Join(root, "automation", ".data", "checkpoints")
	cs, err := NewCheckpointStore(checkpointDir)
	require.NoError(t, err)

	wm := NewWorktreeManager(root, "develop")
	wt, err := wm.Create(context.Background(), 1)
	require.NoError(t, err)
	// Simulate the build phase having produced a file change, since the
	// fake agent below doesn't touch the filesystem itself.
	require.NoError(t, os.WriteFile(filepath.Join(wt.Path, "feature.go"), []byte("package widgets\n"), 0o644))
	require.NoError(t, cs.Save(&Checkpoint{IssueNumber: 1, WorkflowID: "issue-1", WorktreePath: wt.Path, BranchName: wt.Branch}))

	agent := &fakeAgent{output: Output{Text: "done"}}
	gh := &fakeGitHubClient{}

	prFactory := func(wt *Worktree, issue Issue) *PRModule {
		return NewPRModule(wt.Path, "acme", "widgets", "develop", gh, kerrors.BackoffParams{})
	}

	orch := NewOrchestrator(agent, nil, cs, wm, prFactory, kerrors.BackoffParams{}, 1)

	issue := Issue{Number: 1, Domain: "widgets", Title: "add export", Body: "export widgets to csv"}
	result, err := orch.Run(context.Background(), issue)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "https://example.com/acme/widgets/pull/1", result.PRURL)
	assert.Equal(t, 4, agent.calls, "analysis, plan, build, improve each invoke the agent once")

	loaded, err := cs.Load(1)
	require.NoError(t, err)
	assert.Nil(t, loaded, "checkpoint should be deleted after a successful run")
}

func TestOrchestratorRunPreservesCheckpointOnPhaseFailure(t *testing.T) {
	root, _ := initOrchestratorRepo(t)

	checkpointDir := filepath.Join(root, "automation", ".data", "checkpoints")
	cs, err := NewCheckpointStore(checkpointDir)
	require.NoError(t, err)

	wm := NewWorktreeManager(root, "develop")
	failingAgent := &fakeAgent{err: assert.AnError}

	orch := NewOrchestrator(failingAgent, nil, cs, wm, nil, kerrors.BackoffParams{}, 1)

	issue := Issue{Number: 2, Domain: "widgets", Title: "add export"}
	result, err := orch.Run(context.Background(), issue)
	require.Error(t, err)
	assert.False(t, result.Succeeded)
	assert.Equal(t, PhaseAnalysis, result.FailedPhase)

	loaded, err := cs.Load(2)
	require.NoError(t, err)
	require.NotNil(t, loaded, "checkpoint must survive a failed run")
	assert.Contains(t, loaded.WorktreePath, ".worktrees")
	assert.Empty(t, loaded.CompletedPhases, "analysis failed before completing, so it must not be recorded")
}

func TestOrchestratorRunResumesFromCheckpointSkippingCompletedPhases(t *testing.T) {
	root, _ := initOrchestratorRepo(t)

	checkpointDir := filepath.Join(root, "automation", ".data", "checkpoints")
	cs, err := NewCheckpointStore(checkpointDir)
	require.NoError(t, err)

	wm := NewWorktreeManager(root, "develop")
	wt, err := wm.Create(context.Background(), 3)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wt.Path, "feature.go"), []byte("package widgets\n"), 0o644))

	cp := &Checkpoint{IssueNumber: 3, WorkflowID: "issue-3", WorktreePath: wt.Path, BranchName: wt.Branch}
	cp.WithPhaseComplete(PhaseAnalysis)
	cp.WithPhaseComplete(PhasePlan)
	cp.WithPhaseComplete(PhaseBuild)
	cp.WithPhaseComplete(PhaseImprove)
	require.NoError(t, cs.Save(cp))

	agent := &fakeAgent{output: Output{Text: "done"}}
	gh := &fakeGitHubClient{}
	prFactory := func(wt *Worktree, issue Issue) *PRModule {
		return NewPRModule(wt.Path, "acme", "widgets", "develop", gh, kerrors.BackoffParams{})
	}
	orch := NewOrchestrator(agent, nil, cs, wm, prFactory, kerrors.BackoffParams{}, 1)

	result, err := orch.Run(context.Background(), Issue{Number: 3, Domain: "widgets", Title: "add export"})
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, 0, agent.calls, "resumed run must not re-invoke the agent for already-completed phases")
}
