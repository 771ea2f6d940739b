package adw

import (
	"context"
	"fmt"
	"time"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
	"kotadb/internal/store"
)

// Phase names for the fixed ADW sequence (§4.11):
// analysis -> plan -> build -> improve -> pr.
const (
	PhaseAnalysis = store.PhaseAnalysis
	PhasePlan     = store.PhasePlan
	PhaseBuild    = store.PhaseBuild
	PhaseImprove  = store.PhaseImprove
	PhasePR       = "pr"
)

var orderedPhases = []string{PhaseAnalysis, PhasePlan, PhaseBuild, PhaseImprove, PhasePR}

// Issue is the minimal task description driving one orchestrator run.
type Issue struct {
	Number   int
	Domain   string
	SpecPath string
	Title    string
	Body     string
}

// Result is the terminal outcome of one orchestrator Run.
type Result struct {
	IssueNumber   int
	WorkflowID    string
	Succeeded     bool
	FailedPhase   string
	PRURL         string
	FilesModified []string
	DurationMs    int64
	CostUsd       float64
}

// Orchestrator drives a single issue through the fixed 5-phase state
// machine (§4.11): start -> analysis -> plan -> build -> improve -> pr ->
// done. A failure in improve is non-fatal and the workflow proceeds to pr
// regardless; a failure in any other phase (after retry) leaves the
// workflow in [failed, checkpoint preserved]. Structured like the teacher's
// Orchestrator (internal/campaign/orchestrator_types.go,
// orchestrator_phases.go) but driving kotadb's fixed linear phase sequence
// instead of a Mangle-derived dynamic task graph.
type Orchestrator struct {
	agent      Agent
	curator    *Curator
	checkpoint *CheckpointStore
	worktrees  *WorktreeManager
	pr         func(wt *Worktree, issue Issue) *PRModule
	backoff    kerrors.BackoffParams
	maxRetries int
}

// NewOrchestrator builds an Orchestrator. prFactory constructs a PRModule
// scoped to the issue's worktree, deferred until the pr phase actually
// needs one.
func NewOrchestrator(agent Agent, curator *Curator, checkpoints *CheckpointStore, worktrees *WorktreeManager, prFactory func(wt *Worktree, issue Issue) *PRModule, backoff kerrors.BackoffParams, maxRetries int) *Orchestrator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Orchestrator{
		agent:      agent,
		curator:    curator,
		checkpoint: checkpoints,
		worktrees:  worktrees,
		pr:         prFactory,
		backoff:    backoff,
		maxRetries: maxRetries,
	}
}

// Run drives issue through the phase sequence, resuming from any existing
// checkpoint (§4.12: phases already in CompletedPhases are skipped).
func (o *Orchestrator) Run(ctx context.Context, issue Issue) (*Result, error) {
	start := time.Now()
	workflowID := fmt.Sprintf("issue-%d", issue.Number)

	cp, err := o.checkpoint.Load(issue.Number)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load checkpoint: %w", err)
	}
	if cp == nil {
		cp = &Checkpoint{
			IssueNumber: issue.Number,
			WorkflowID:  workflowID,
			Domain:      issue.Domain,
			SpecPath:    issue.SpecPath,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
	}

	var wt *Worktree
	if cp.WorktreePath != "" {
		wt = &Worktree{Path: cp.WorktreePath, Branch: cp.BranchName}
	} else {
		wt, err = o.worktrees.Create(ctx, issue.Number)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: create worktree: %w", err)
		}
		cp.WorktreePath = wt.Path
		cp.BranchName = wt.Branch
		if err := o.checkpoint.Save(cp); err != nil {
			logging.ADWWarn("orchestrator: failed to persist checkpoint after worktree create: %v", err)
		}
	}

	var lastOutput Output
	var prURL string

	for _, phase := range orderedPhases {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if cp.HasCompleted(phase) {
			logging.ADWDebug("issue #%d: skipping already-completed phase %s", issue.Number, phase)
			continue
		}

		if phase == PhasePR {
			out, url, err := o.runPRPhase(ctx, wt, issue, cp)
			prURL = url
			if err != nil {
				return o.fail(issue, workflowID, cp, phase, start, err)
			}
			lastOutput = out
		} else {
			out, err := o.runAgentPhase(ctx, workflowID, phase, issue, cp, lastOutput)
			if err != nil {
				if phase == PhaseImprove {
					logging.ADWWarn("issue #%d: improve phase failed, proceeding to pr anyway: %v", issue.Number, err)
				} else {
					return o.fail(issue, workflowID, cp, phase, start, err)
				}
			} else {
				lastOutput = out
			}
		}

		cp.WithPhaseComplete(phase)
		if err := o.checkpoint.Save(cp); err != nil {
			logging.ADWWarn("orchestrator: failed to persist checkpoint after phase %s: %v", phase, err)
		}
	}

	if o.curator != nil {
		if _, err := o.curator.st.ClearWorkflowContext(workflowID); err != nil {
			logging.ADWWarn("orchestrator: failed to clear workflow context for %s: %v", workflowID, err)
		}
	}
	if err := o.checkpoint.Delete(issue.Number); err != nil {
		logging.ADWWarn("orchestrator: failed to delete checkpoint for issue #%d: %v", issue.Number, err)
	}

	logging.ADW("issue #%d: workflow complete (%s)", issue.Number, time.Since(start))
	return &Result{
		IssueNumber:   issue.Number,
		WorkflowID:    workflowID,
		Succeeded:     true,
		PRURL:         prURL,
		FilesModified: cp.FilesModified,
		DurationMs:    time.Since(start).Milliseconds(),
	}, nil
}

func (o *Orchestrator) runAgentPhase(ctx context.Context, workflowID, phase string, issue Issue, cp *Checkpoint, prevOutput Output) (Output, error) {
	var curated *CuratedContext
	if o.curator != nil {
		for i := 1; i < len(orderedPhases); i++ {
			if orderedPhases[i] != phase {
				continue
			}
			if existing, err := o.curator.st.GetWorkflowContext(workflowID, orderedPhases[i-1]); err == nil && existing != nil {
				curated = &CuratedContext{Summary: existing.ContextData}
			}
		}
	}

	prompt := Prompt{
		Phase:       phase,
		Instruction: fmt.Sprintf("issue #%d (%s): %s\n\n%s", issue.Number, issue.Domain, issue.Title, issue.Body),
	}
	if curated != nil {
		prompt.CuratedContext = curated.InjectString()
	}

	var out Output
	err := withRetry(ctx, o.maxRetries, o.backoff, func(ctx context.Context) error {
		var runErr error
		out, runErr = o.agent.Run(ctx, prompt)
		return runErr
	})
	if err != nil {
		return Output{}, fmt.Errorf("%w: phase %s: %v", kerrors.ErrPhaseFailure, phase, err)
	}

	if o.curator != nil {
		if _, curateErr := o.curator.Curate(ctx, workflowID, phase, "", nil, out); curateErr != nil {
			logging.ADWWarn("curator failed for phase %s, continuing uncurated: %v", phase, curateErr)
		}
	}

	return out, nil
}

func (o *Orchestrator) runPRPhase(ctx context.Context, wt *Worktree, issue Issue, cp *Checkpoint) (Output, string, error) {
	if o.pr == nil {
		return Output{}, "", fmt.Errorf("%w: no PR module configured", kerrors.ErrInvalidParams)
	}
	mod := o.pr(wt, issue)

	if err := mod.Stage(ctx, cp.FilesModified); err != nil {
		return Output{}, "", err
	}
	if err := mod.Commit(ctx, "feat", issue.Domain, issue.Number); err != nil {
		return Output{}, "", err
	}
	if err := mod.Push(ctx, wt.Branch); err != nil {
		return Output{}, "", err
	}

	title := fmt.Sprintf("%s (#%d)", issue.Title, issue.Number)
	body := Body(issue.Body, nil, Metrics{FilesModified: len(cp.FilesModified)}, issue.Number)
	pr, err := mod.Open(ctx, wt.Branch, title, body)
	if err != nil {
		return Output{}, "", err
	}
	return Output{Text: "opened pull request"}, pr.GetHTMLURL(), nil
}

func (o *Orchestrator) fail(issue Issue, workflowID string, cp *Checkpoint, phase string, start time.Time, cause error) (*Result, error) {
	if err := o.checkpoint.Save(cp); err != nil {
		logging.ADWWarn("orchestrator: failed to persist checkpoint on failure: %v", err)
	}
	logging.ADWError("issue #%d: workflow failed in phase %s: %v", issue.Number, phase, cause)
	return &Result{
		IssueNumber: issue.Number,
		WorkflowID:  workflowID,
		Succeeded:   false,
		FailedPhase: phase,
		DurationMs:  time.Since(start).Milliseconds(),
	}, fmt.Errorf("issue #%d: phase %s: %w", issue.Number, phase, cause)
}
