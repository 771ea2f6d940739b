// Package adw implements the Autonomous Developer Workflow orchestrator
// (§4.11-§4.15): a five-phase issue-to-PR pipeline (analysis, plan, build,
// improve, pr) driven by an injected LLM Agent, with checkpointed resume,
// isolated worktrees, bounded batch fan-out, and a thin GitHub PR client.
package adw

import "context"

// Prompt is the constructed input to a single phase's Agent invocation.
type Prompt struct {
	Phase          string
	Instruction    string
	CuratedContext string // ≤2000 chars, per §4.11
}

// Output is a phase's raw textual result. Phase-specific parsing (§4.11's
// labeled-section extraction for analysis, path extraction for plan, file
// list for build) happens above this boundary.
type Output struct {
	Text string
}

// Agent is the injected LLM-invocation boundary. The concrete provider is
// external glue (§1) and is never imported by this package; tests
// substitute a fake Agent returning scripted Outputs.
type Agent interface {
	Run(ctx context.Context, prompt Prompt) (Output, error)
}
