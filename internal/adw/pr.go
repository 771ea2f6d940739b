package adw

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
)

// GitHubClient is the narrow subset of the GitHub API the PR module needs,
// structured like nickmisasi-mattermost-plugin-cursor/server/ghclient/client.go's
// Client: a small interface backed by a real go-github client, swappable
// with a fake in tests.
type GitHubClient interface {
	CreatePullRequest(ctx context.Context, owner, repo string, req *github.NewPullRequest) (*github.PullRequest, error)
	GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*github.PullRequest, error)
}

type ghClientImpl struct {
	gh *github.Client
}

// NewGitHubClient builds a GitHubClient authenticated with token. Returns
// nil if token is empty, matching ghclient.NewClient's empty-token
// short-circuit — PR integration is disabled rather than erroring.
func NewGitHubClient(token string) GitHubClient {
	if token == "" {
		return nil
	}
	return &ghClientImpl{gh: github.NewClient(nil).WithAuthToken(token)}
}

func (c *ghClientImpl) CreatePullRequest(ctx context.Context, owner, repo string, req *github.NewPullRequest) (*github.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, req)
	return pr, err
}

func (c *ghClientImpl) GetPullRequestByBranch(ctx context.Context, owner, repo, branch string) (*github.PullRequest, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		Head:        owner + ":" + branch,
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0], nil
}

// gitTransientHints classifies git push failures as transient, per §4.15.1,
// reusing the ADW retry/backoff policy (§4.11.1).
var gitTransientHints = []string{
	"connection reset",
	"the remote end hung up unexpectedly",
	"could not resolve host",
}

// ValidationResult is the outcome of one pre-PR validation command.
type ValidationResult struct {
	Command string `json:"command"`
	Passed  bool   `json:"passed"`
	Output  string `json:"output,omitempty"`
}

// Metrics summarizes a phase run for the PR body's metrics table.
type Metrics struct {
	FilesModified int    `json:"filesModified"`
	DurationMs    int64  `json:"durationMs"`
	CostUsd       float64 `json:"costUsd"`
}

// PRModule implements §4.15: validate, stage, commit, push, open PR.
type PRModule struct {
	workDir    string
	owner      string
	repo       string
	baseBranch string
	client     GitHubClient
	backoff    kerrors.BackoffParams
}

// NewPRModule builds a PRModule. client may be nil (GITHUB_TOKEN unset);
// Open then returns an error rather than silently skipping, since a caller
// that reached Open expects a PR.
func NewPRModule(workDir, owner, repo, baseBranch string, client GitHubClient, backoff kerrors.BackoffParams) *PRModule {
	return &PRModule{workDir: workDir, owner: owner, repo: repo, baseBranch: baseBranch, client: client, backoff: backoff}
}

// Validate runs type-check and tests; both must pass. It runs only these
// two commands: no convention scan (ad-hoc prints, deep relative imports)
// is performed.
func (m *PRModule) Validate(ctx context.Context, typeCheckCmd, testCmd []string) ([]ValidationResult, error) {
	var results []ValidationResult
	for _, cmd := range [][]string{typeCheckCmd, testCmd} {
		if len(cmd) == 0 {
			continue
		}
		out, err := m.run(ctx, cmd[0], cmd[1:]...)
		results = append(results, ValidationResult{
			Command: strings.Join(cmd, " "),
			Passed:  err == nil,
			Output:  out,
		})
		if err != nil {
			return results, fmt.Errorf("%w: %s failed", kerrors.ErrPhaseFailure, cmd[0])
		}
	}
	return results, nil
}

// Stage adds the given paths; on failure it falls back to staging
// everything (§4.15 step 2).
func (m *PRModule) Stage(ctx context.Context, paths []string) error {
	if len(paths) > 0 {
		if _, err := m.run(ctx, "git", append([]string{"add"}, paths...)...); err == nil {
			return nil
		}
		logging.PRWarn("staging specific paths failed, falling back to stage-all")
	}
	if _, err := m.run(ctx, "git", "add", "-A"); err != nil {
		return fmt.Errorf("%w: stage-all failed: %v", kerrors.ErrFatal, err)
	}
	return nil
}

// Commit creates a commit with subject "<type>(<domain>): implement issue #<n>".
func (m *PRModule) Commit(ctx context.Context, changeType, domain string, issueNumber int) error {
	subject := fmt.Sprintf("%s(%s): implement issue #%d", changeType, domain, issueNumber)
	if _, err := m.run(ctx, "git", "commit", "-m", subject); err != nil {
		return fmt.Errorf("%w: commit failed: %v", kerrors.ErrFatal, err)
	}
	return nil
}

// Push pushes branch to the remote, retrying transient failures (§4.15 step 4).
func (m *PRModule) Push(ctx context.Context, branch string) error {
	return withRetry(ctx, 3, m.backoff, func(ctx context.Context) error {
		out, err := m.run(ctx, "git", "push", "-u", "origin", branch)
		if err != nil {
			return classifyPushError(out, err)
		}
		return nil
	})
}

func classifyPushError(output string, err error) error {
	lower := strings.ToLower(output + " " + err.Error())
	for _, hint := range gitTransientHints {
		if strings.Contains(lower, hint) {
			return fmt.Errorf("%w: push: %v", kerrors.ErrTransient, err)
		}
	}
	return fmt.Errorf("push failed: %w", err)
}

// Body composes the PR description: Summary, Validation Evidence,
// Anti-Mock declaration, Metrics table, Closes #<n> (§4.15 step 5).
func Body(summary string, validations []ValidationResult, metrics Metrics, issueNumber int) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n## Validation Evidence\n\n")
	for _, v := range validations {
		status := "FAILED"
		if v.Passed {
			status = "PASSED"
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", v.Command, status)
	}
	b.WriteString("\n## Anti-Mock Declaration\n\n")
	b.WriteString("This change was validated against real dependencies, not mocks.\n")
	b.WriteString("\n## Metrics\n\n")
	b.WriteString("| files modified | duration | cost |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %dms | $%.4f |\n", metrics.FilesModified, metrics.DurationMs, metrics.CostUsd)
	fmt.Fprintf(&b, "\nCloses #%d\n", issueNumber)
	return b.String()
}

// Open opens the pull request targeting baseBranch, skipping creation (and
// returning the existing PR) if one is already open on branch.
func (m *PRModule) Open(ctx context.Context, branch, title, body string) (*github.PullRequest, error) {
	if m.client == nil {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN not configured", kerrors.ErrInvalidParams)
	}

	existing, err := m.client.GetPullRequestByBranch(ctx, m.owner, m.repo, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing PR: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	pr, err := m.client.CreatePullRequest(ctx, m.owner, m.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(m.baseBranch),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pull request: %w", err)
	}
	logging.PR("opened PR #%d for branch %s", pr.GetNumber(), branch)
	return pr, nil
}

func (m *PRModule) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = m.workDir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// parsePRNumberFromTitle extracts the first "#<n>" issue reference, used
// when a caller only has a title and needs the numeric issue back.
func parsePRNumberFromTitle(title string) (int, bool) {
	idx := strings.Index(title, "#")
	if idx == -1 {
		return 0, false
	}
	rest := title[idx+1:]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
