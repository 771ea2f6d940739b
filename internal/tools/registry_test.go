package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, tier Tier, required ...string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its args back",
		Tier:        tier,
		Schema:      ToolSchema{Required: required},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		},
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("dup", TierCore)))
	err := reg.Register(echoTool("dup", TierCore))
	assert.Error(t, err)
}

func TestRegistryRejectsInvalidTool(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&Tool{Name: "no-exec"})
	assert.ErrorIs(t, err, errToolExecuteNil)
}

func TestForToolsetNestsTiers(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("core-tool", TierCore)))
	require.NoError(t, reg.Register(echoTool("sync-tool", TierSync)))
	require.NoError(t, reg.Register(echoTool("memory-tool", TierMemory)))
	require.NoError(t, reg.Register(echoTool("expertise-tool", TierExpertise)))

	assert.Len(t, reg.ForToolset(ToolsetCore), 1)
	assert.Len(t, reg.ForToolset(ToolsetDefault), 2)
	assert.Len(t, reg.ForToolset(ToolsetMemory), 3)
	assert.Len(t, reg.ForToolset(ToolsetFull), 4)
}

func TestExecuteRejectsToolOutsideToolset(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("memory-tool", TierMemory)))

	_, err := reg.Execute(context.Background(), "memory-tool", nil, ToolsetCore)
	assert.Error(t, err)

	result, err := reg.Execute(context.Background(), "memory-tool", nil, ToolsetMemory)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
}

func TestExecuteRejectsMissingRequiredArg(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool("needs-arg", TierCore, "term")))

	result, err := reg.Execute(context.Background(), "needs-arg", map[string]any{}, ToolsetCore)
	assert.Error(t, err)
	assert.False(t, result.IsSuccess())

	result, err = reg.Execute(context.Background(), "needs-arg", map[string]any{"term": "x"}, ToolsetCore)
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
}

func TestExecuteUnknownToolName(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Execute(context.Background(), "nope", nil, ToolsetFull)
	assert.Error(t, err)
}

func TestGlobalRegistrySingleton(t *testing.T) {
	assert.Same(t, Global(), Global())
}
