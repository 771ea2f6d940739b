package adw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
)

type fakeAgent struct {
	output Output
	err    error
	calls  int
}

func (f *fakeAgent) Run(ctx context.Context, prompt Prompt) (Output, error) {
	f.calls++
	if f.err != nil {
		return Output{}, f.err
	}
	return f.output, nil
}

func TestCuratorCuratePersistsWorkflowContext(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	agent := &fakeAgent{output: Output{Text: "build phase produced a working handler"}}
	curator := NewCurator(agent, st, nil)

	cc, err := curator.Curate(context.Background(), "issue-1", store.PhaseBuild, "", nil, Output{Text: "raw phase output"})
	require.NoError(t, err)
	assert.Equal(t, "build phase produced a working handler", cc.Summary)
	assert.Equal(t, 1, agent.calls)

	stored, err := st.GetWorkflowContext("issue-1", store.PhaseBuild)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.ContextData, "build phase produced a working handler")
}

func TestCuratedContextInjectStringTruncates(t *testing.T) {
	huge := make([]byte, curatedContextCap*2)
	for i := range huge {
		huge[i] = 'x'
	}
	cc := &CuratedContext{Summary: string(huge)}
	injected := cc.InjectString()
	assert.LessOrEqual(t, len(injected), curatedContextCap)
}

func TestCuratedContextInjectStringNilIsEmpty(t *testing.T) {
	var cc *CuratedContext
	assert.Equal(t, "", cc.InjectString())
}
