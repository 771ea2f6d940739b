package adw

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
)

const worktreeTimeout = 2 * time.Minute

// WorktreeManager creates and tears down isolated working trees for ADW
// workflows (§4.13), rooted under <root>/.worktrees. Every git invocation
// uses an explicit argv through exec.CommandContext, never a shell, with
// captured output and a context timeout (§4.13.1), the same subprocess
// discipline the teacher's tactile.SafeExecutor applies to every command it
// runs (internal/tactile/executor.go).
type WorktreeManager struct {
	root       string
	baseBranch string
}

// NewWorktreeManager builds a WorktreeManager rooted at root, branching new
// worktrees off baseBranch (default "develop" if empty).
func NewWorktreeManager(root, baseBranch string) *WorktreeManager {
	if baseBranch == "" {
		baseBranch = "develop"
	}
	return &WorktreeManager{root: root, baseBranch: baseBranch}
}

// Worktree describes a created isolated working tree.
type Worktree struct {
	Path   string
	Branch string
}

// Create adds a new worktree at <root>/.worktrees/<issue>-<timestamp> on
// branch automation/<issue>-<timestamp>, forked from baseBranch (§4.13).
func (m *WorktreeManager) Create(ctx context.Context, issueNumber int) (*Worktree, error) {
	stamp := isoStamp(time.Now())
	dirName := fmt.Sprintf("%d-%s", issueNumber, stamp)
	branch := fmt.Sprintf("automation/%s", dirName)
	path := filepath.Join(m.root, ".worktrees", dirName)

	if _, _, err := m.git(ctx, "worktree", "add", "-b", branch, path, m.baseBranch); err != nil {
		return nil, fmt.Errorf("%w: create worktree: %v", kerrors.ErrFatal, err)
	}
	logging.Worktree("created worktree %s on branch %s", path, branch)
	return &Worktree{Path: path, Branch: branch}, nil
}

// Remove tears down a worktree. A missing worktree is a no-op (§4.13).
// force passes --force to `git worktree remove`; removeBranch additionally
// deletes the branch afterward.
func (m *WorktreeManager) Remove(ctx context.Context, wt *Worktree, force, removeBranch bool) error {
	exists, err := m.Exists(ctx, wt.Path)
	if err != nil {
		return err
	}
	if !exists {
		logging.WorktreeDebug("worktree %s already absent, nothing to remove", wt.Path)
		return nil
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, wt.Path)
	if _, stderr, err := m.git(ctx, args...); err != nil {
		return fmt.Errorf("%w: remove worktree: %v (%s)", kerrors.ErrFatal, err, stderr)
	}

	if removeBranch {
		branchArgs := []string{"branch", "-D", wt.Branch}
		if _, stderr, err := m.git(ctx, branchArgs...); err != nil {
			logging.WorktreeWarn("removed worktree %s but failed to delete branch %s: %v (%s)", wt.Path, wt.Branch, err, stderr)
		}
	}

	logging.Worktree("removed worktree %s", wt.Path)
	return nil
}

// Exists reports whether path is a known worktree per `git worktree list`.
func (m *WorktreeManager) Exists(ctx context.Context, path string) (bool, error) {
	stdout, _, err := m.git(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("%w: list worktrees: %v", kerrors.ErrFatal, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "worktree ") && strings.TrimPrefix(line, "worktree ") == abs {
			return true, nil
		}
	}
	return false, nil
}

func (m *WorktreeManager) git(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, worktreeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.root

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	logging.WorktreeDebug("running: git %s", strings.Join(args, " "))
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// isoStamp formats t as ISO-8601 with ':' replaced by '-', per §4.13.
func isoStamp(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format(time.RFC3339), ":", "-")
}
