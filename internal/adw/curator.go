package adw

import (
	"context"
	"encoding/json"
	"fmt"

	"kotadb/internal/logging"
	"kotadb/internal/store"
	"kotadb/internal/tools"
)

// curatedContextCap is the character budget a CuratedContext is truncated
// to before injection into the next phase's prompt (§4.11).
const curatedContextCap = 2000

// CuratedContext is the Curator's compact inter-phase summary, stored in
// WorkflowContext and injected into the next phase's Prompt.
type CuratedContext struct {
	Summary           string           `json:"summary"`
	RelevantFailures  []store.Failure  `json:"relevantFailures"`
	RelevantPatterns  []store.Pattern  `json:"relevantPatterns"`
	RelevantDecisions []store.Decision `json:"relevantDecisions"`
	CodeIntelligence  string           `json:"codeIntelligence,omitempty"`
}

// Curator runs a second, cheaper LLM pass between phases (§4.11) with
// scoped access to memory tools (search over decisions/patterns/failures)
// and code-intelligence tools (generate_task_context, search_dependencies,
// analyze_change_impact), producing a summary persisted to WorkflowContext.
type Curator struct {
	agent Agent
	st    *store.Store
	reg   *tools.Registry
}

// NewCurator builds a Curator. agent is the cheap-LLM invocation boundary;
// st and reg back the scoped memory/code-intelligence tool access.
func NewCurator(agent Agent, st *store.Store, reg *tools.Registry) *Curator {
	return &Curator{agent: agent, st: st, reg: reg}
}

// Curate summarizes a completed phase's output into a CuratedContext,
// persists it to WorkflowContext under (workflowID, phase), and returns it.
// Curation failures are the caller's to log-and-swallow per §4.11 ("Curation
// and auto-record failures are logged and swallowed").
func (c *Curator) Curate(ctx context.Context, workflowID, phase string, repositoryID string, filePaths []string, phaseOutput Output) (*CuratedContext, error) {
	failures, _, err := c.st.SearchFailures("", 20)
	if err != nil {
		return nil, fmt.Errorf("curator: search failures: %w", err)
	}
	patterns, err := c.st.SearchPatterns("", "", repositoryID, 20)
	if err != nil {
		return nil, fmt.Errorf("curator: search patterns: %w", err)
	}
	decisions, _, err := c.st.SearchDecisions("", 20)
	if err != nil {
		return nil, fmt.Errorf("curator: search decisions: %w", err)
	}

	var codeIntel string
	if len(filePaths) > 0 && c.reg != nil {
		args := map[string]any{"repository_id": repositoryID, "file_paths": anySlice(filePaths)}
		if result, err := c.reg.ExecuteTool(ctx, c.reg.Get("generate_task_context"), args); err == nil && result.IsSuccess() {
			codeIntel = result.Result
		}
	}

	prompt := Prompt{
		Phase: phase,
		Instruction: fmt.Sprintf(
			"Summarize phase %q's output in at most a few sentences for the next phase. "+
				"Output:\n%s", phase, phaseOutput.Text,
		),
	}
	summaryOut, err := c.agent.Run(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("curator: summarize: %w", err)
	}

	cc := &CuratedContext{
		Summary:           truncate(summaryOut.Text, curatedContextCap),
		RelevantFailures:  failures,
		RelevantPatterns:  patterns,
		RelevantDecisions: decisions,
		CodeIntelligence:  codeIntel,
	}

	data, err := json.Marshal(cc)
	if err != nil {
		return cc, fmt.Errorf("curator: marshal context: %w", err)
	}
	if _, err := c.st.UpsertWorkflowContext(store.WorkflowContext{
		WorkflowID:  workflowID,
		Phase:       phase,
		ContextData: string(data),
	}); err != nil {
		return cc, fmt.Errorf("curator: persist context: %w", err)
	}

	logging.ADWDebug("curator: summarized phase %s for workflow %s (%d bytes)", phase, workflowID, len(data))
	return cc, nil
}

// InjectString renders a CuratedContext for prompt injection, capped at
// curatedContextCap characters (§4.11).
func (cc *CuratedContext) InjectString() string {
	if cc == nil {
		return ""
	}
	data, err := json.Marshal(cc)
	if err != nil {
		return truncate(cc.Summary, curatedContextCap)
	}
	return truncate(string(data), curatedContextCap)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
