package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ADW phases, per §3's Data Model and the workflow_contexts CHECK constraint.
const (
	PhaseAnalysis = "analysis"
	PhasePlan     = "plan"
	PhaseBuild    = "build"
	PhaseImprove  = "improve"
)

// WorkflowContext is the Curator's per-phase summary, injected into the
// next phase's prompt.
type WorkflowContext struct {
	ID          string
	WorkflowID  string
	Phase       string
	ContextData string
}

// UpsertWorkflowContext inserts or replaces the context for (workflow_id, phase).
func (s *Store) UpsertWorkflowContext(wc WorkflowContext) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existingID string
	err := s.db.QueryRow(
		"SELECT id FROM workflow_contexts WHERE workflow_id = ? AND phase = ?",
		wc.WorkflowID, wc.Phase,
	).Scan(&existingID)

	switch err {
	case nil:
		_, err = s.db.Exec(
			"UPDATE workflow_contexts SET context_data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			wc.ContextData, existingID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update workflow context: %w", err)
		}
		return existingID, nil
	case sql.ErrNoRows:
		id := wc.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = s.db.Exec(
			"INSERT INTO workflow_contexts (id, workflow_id, phase, context_data) VALUES (?, ?, ?, ?)",
			id, wc.WorkflowID, wc.Phase, wc.ContextData,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert workflow context: %w", err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("failed to look up workflow context: %w", err)
	}
}

// ClearWorkflowContext deletes every phase row for workflowID, returning the
// count of rows removed. Called on successful workflow completion so a
// subsequent Get for any phase returns nothing (§8).
func (s *Store) ClearWorkflowContext(workflowID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM workflow_contexts WHERE workflow_id = ?", workflowID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear workflow context: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared workflow context rows: %w", err)
	}
	return int(n), nil
}

// GetWorkflowContext fetches the stored context for (workflow_id, phase).
func (s *Store) GetWorkflowContext(workflowID, phase string) (*WorkflowContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, workflow_id, phase, context_data FROM workflow_contexts WHERE workflow_id = ? AND phase = ?",
		workflowID, phase,
	)
	var wc WorkflowContext
	if err := row.Scan(&wc.ID, &wc.WorkflowID, &wc.Phase, &wc.ContextData); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan workflow context: %w", err)
	}
	return &wc, nil
}
