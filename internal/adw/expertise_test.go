package adw

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
	"kotadb/internal/tools"
)

func TestRegisterExpertiseToolsAddsBothUnderExpertiseTier(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, RegisterExpertiseTools(reg, st))

	assert.True(t, reg.Has("validate_expertise"))
	assert.True(t, reg.Has("sync_expertise"))
	assert.Equal(t, tools.TierExpertise, reg.Get("validate_expertise").Tier)
	assert.Equal(t, tools.TierExpertise, reg.Get("sync_expertise").Tier)
}

func TestSyncExpertiseThenValidateExpertiseRoundTrips(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repo, err := st.UpsertRepository("local/widget", "/repo")
	require.NoError(t, err)

	reg := tools.NewRegistry()
	require.NoError(t, RegisterExpertiseTools(reg, st))

	syncResult, err := reg.Execute(context.Background(), "sync_expertise", map[string]any{
		"repository_id": repo.ID,
		"domain":        "billing",
		"content":       "invoices are idempotent by external_id",
	}, tools.ToolsetFull)
	require.NoError(t, err)
	assert.True(t, syncResult.IsSuccess())

	validateResult, err := reg.Execute(context.Background(), "validate_expertise", map[string]any{
		"repository_id": repo.ID,
		"domain":        "billing",
	}, tools.ToolsetFull)
	require.NoError(t, err)
	assert.True(t, validateResult.IsSuccess())

	var out struct {
		Domain string         `json:"domain"`
		Exists bool           `json:"exists"`
		Note   *store.Pattern `json:"note"`
	}
	require.NoError(t, json.Unmarshal([]byte(validateResult.Result), &out))
	assert.True(t, out.Exists)
	require.NotNil(t, out.Note)
	assert.Equal(t, "invoices are idempotent by external_id", out.Note.Example)
}

func TestExpertiseToolsRejectedOutsideFullToolset(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, RegisterExpertiseTools(reg, st))

	_, err = reg.Execute(context.Background(), "validate_expertise", map[string]any{
		"repository_id": "repo-1",
		"domain":        "billing",
	}, tools.ToolsetMemory)
	assert.Error(t, err)
}
