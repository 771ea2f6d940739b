package adw

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
)

// defaultCLIAgentTimeout bounds a single phase invocation of the external
// agent binary. Analysis/plan/build/improve phases can legitimately run
// long; this is deliberately generous rather than per-phase tuned.
const defaultCLIAgentTimeout = 30 * time.Minute

// execLookPath and newExecCommand are var-wrapped for testability, the same
// pattern the teacher's cmd/nerd/cmd_auth.go uses for its own external-CLI
// invocation (findExecutable/newExecCommand).
var execLookPath = func(file string) (string, error) {
	return exec.LookPath(file)
}

var newExecCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// findExecutable resolves name on PATH, matching the teacher's
// cmd/nerd/cmd_auth.go findExecutable: try as-is, then (on Windows) with
// .exe/.cmd suffixes.
func findExecutable(name string) (string, error) {
	if path, err := execLookPath(name); err == nil {
		return path, nil
	}
	if runtime.GOOS == "windows" {
		if path, err := execLookPath(name + ".exe"); err == nil {
			return path, nil
		}
		if path, err := execLookPath(name + ".cmd"); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH", name)
}

// CLIAgent implements Agent by shelling out to an external coding-agent CLI
// (by default "claude", the same binary the teacher's cmd/nerd/cmd_auth.go
// detects and drives) rather than linking an LLM provider SDK. The
// provider itself stays out of process: each phase's Prompt is piped to the
// binary's stdin and its stdout captured as the phase Output, the same
// subprocess discipline WorktreeManager.git and PRModule.run apply to git.
type CLIAgent struct {
	binary  string
	workDir string
	args    []string
	timeout time.Duration
}

// NewCLIAgent builds a CLIAgent rooted at workDir (the phase's worktree),
// invoking binary (default "claude" if empty) with extraArgs appended after
// the fixed non-interactive flags. The binary is resolved lazily on first
// Run, not at construction, so an orchestrator can be built before the
// agent CLI is installed.
func NewCLIAgent(binary, workDir string, extraArgs ...string) *CLIAgent {
	if binary == "" {
		binary = "claude"
	}
	return &CLIAgent{binary: binary, workDir: workDir, args: extraArgs, timeout: defaultCLIAgentTimeout}
}

// Run invokes the configured CLI binary once per phase, feeding prompt.Instruction
// (prefixed with prompt.CuratedContext when present) on stdin and returning
// its stdout as Output.Text. A missing binary or non-zero exit is a fatal
// error (§4.11): phases don't retry on "agent not installed".
func (a *CLIAgent) Run(ctx context.Context, prompt Prompt) (Output, error) {
	path, err := findExecutable(a.binary)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", kerrors.ErrFatal, err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if a.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	args := append([]string{"--print"}, a.args...)
	cmd := newExecCommand(runCtx, path, args...)
	cmd.Dir = a.workDir
	cmd.Stdin = strings.NewReader(buildCLIStdin(prompt))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.ADWDebug("phase %s: invoking %s %s", prompt.Phase, a.binary, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return Output{}, fmt.Errorf("%w: %s phase agent invocation failed: %v (%s)",
			kerrors.ErrFatal, prompt.Phase, err, strings.TrimSpace(stderr.String()))
	}

	return Output{Text: stdout.String()}, nil
}

func buildCLIStdin(prompt Prompt) string {
	if prompt.CuratedContext == "" {
		return prompt.Instruction
	}
	var b strings.Builder
	b.WriteString("Context from prior phases:\n")
	b.WriteString(prompt.CuratedContext)
	b.WriteString("\n\n")
	b.WriteString(prompt.Instruction)
	return b.String()
}
