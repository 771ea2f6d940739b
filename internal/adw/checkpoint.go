package adw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
)

// Checkpoint is the per-issue orchestrator state written after each
// successful phase (§4.12), structured like the builder-style State the
// hector checkpoint package captures per agent execution
// (other_examples/.../pkg-checkpoint-state.go.go), adapted from a single
// in-flight agent snapshot to kotadb's per-issue phase-completion record.
type Checkpoint struct {
	IssueNumber     int       `json:"issueNumber"`
	WorkflowID      string    `json:"workflowId"`
	CompletedPhases []string  `json:"completedPhases"`
	Domain          string    `json:"domain,omitempty"`
	SpecPath        string    `json:"specPath,omitempty"`
	FilesModified   []string  `json:"filesModified,omitempty"`
	WorktreePath    string    `json:"worktreePath,omitempty"`
	BranchName      string    `json:"branchName,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasCompleted reports whether phase is already in CompletedPhases, so
// resume can skip it.
func (c *Checkpoint) HasCompleted(phase string) bool {
	for _, p := range c.CompletedPhases {
		if p == phase {
			return true
		}
	}
	return false
}

// WithPhaseComplete appends phase to CompletedPhases (idempotently) and
// bumps UpdatedAt, mirroring the With*-builder style of the hector
// checkpoint.State this type is grounded on.
func (c *Checkpoint) WithPhaseComplete(phase string) *Checkpoint {
	if !c.HasCompleted(phase) {
		c.CompletedPhases = append(c.CompletedPhases, phase)
	}
	c.UpdatedAt = time.Now()
	return c
}

// CheckpointStore persists Checkpoints to per-issue files under a root
// directory, atomically (§4.12, §6: automation/.data/checkpoints/<issue>.json).
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore builds a CheckpointStore rooted at dir, creating it if
// it doesn't exist.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create checkpoint dir: %v", kerrors.ErrFatal, err)
	}
	return &CheckpointStore{dir: dir}, nil
}

func (cs *CheckpointStore) path(issueNumber int) string {
	return filepath.Join(cs.dir, fmt.Sprintf("%d.json", issueNumber))
}

// Save atomically writes cp: marshal to a .tmp file, fsync isn't available
// portably here so we rely on rename's atomicity, then rename over the
// final path, so a crash mid-write never leaves a corrupt checkpoint (§8).
func (cs *CheckpointStore) Save(cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	final := cs.path(cp.IssueNumber)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint tmp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	logging.CheckpointDebug("saved checkpoint for issue #%d (phases=%v)", cp.IssueNumber, cp.CompletedPhases)
	return nil
}

// Load reads the checkpoint for issueNumber, returning (nil, nil) if none
// exists (a fresh run, not an error).
func (cs *CheckpointStore) Load(issueNumber int) (*Checkpoint, error) {
	data, err := os.ReadFile(cs.path(issueNumber))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the checkpoint for issueNumber on final success (§4.12). A
// missing checkpoint is not an error.
func (cs *CheckpointStore) Delete(issueNumber int) error {
	if err := os.Remove(cs.path(issueNumber)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	logging.CheckpointDebug("deleted checkpoint for issue #%d", issueNumber)
	return nil
}
