package adw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointWithPhaseCompleteIsIdempotent(t *testing.T) {
	cp := &Checkpoint{IssueNumber: 1}
	cp.WithPhaseComplete(PhaseAnalysis)
	cp.WithPhaseComplete(PhaseAnalysis)
	assert.Equal(t, []string{PhaseAnalysis}, cp.CompletedPhases)
	assert.True(t, cp.HasCompleted(PhaseAnalysis))
	assert.False(t, cp.HasCompleted(PhasePlan))
}

func TestCheckpointStoreSaveLoadDelete(t *testing.T) {
	dir := t.TempDir()
	cs, err := NewCheckpointStore(dir)
	require.NoError(t, err)

	loaded, err := cs.Load(42)
	require.NoError(t, err)
	assert.Nil(t, loaded, "no checkpoint yet should not be an error")

	cp := &Checkpoint{IssueNumber: 42, WorkflowID: "issue-42"}
	cp.WithPhaseComplete(PhaseAnalysis)
	require.NoError(t, cs.Save(cp))

	_, err = os.Stat(filepath.Join(dir, "42.json.tmp"))
	assert.Error(t, err, "tmp file should have been renamed away")

	loaded, err = cs.Load(42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{PhaseAnalysis}, loaded.CompletedPhases)

	require.NoError(t, cs.Delete(42))
	loaded, err = cs.Load(42)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting an already-absent checkpoint is not an error.
	require.NoError(t, cs.Delete(42))
}
