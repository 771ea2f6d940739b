package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/store"
	"kotadb/internal/tools"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&tools.Tool{
		Name:        "echo",
		Description: "echoes back its term argument",
		Tier:        tools.TierCore,
		Schema:      tools.ToolSchema{Required: []string{"term"}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			data, _ := json.Marshal(args)
			return string(data), nil
		},
	}))
	return NewDispatcher(reg, tools.ToolsetFull)
}

func TestDispatcherInitializeNegotiatesProtocol(t *testing.T) {
	d := newTestDispatcher(t)
	params, _ := json.Marshal(initializeParams{ProtocolVersion: protocolVersion})

	resp := d.Handle(context.Background(), rpcRequest{ID: 1, Method: "initialize", Params: params})
	require.Nil(t, resp.Error)
	assert.Equal(t, protocolVersion, d.NegotiatedProtocol())

	var result initializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "kotadb", result.ServerInfo.Name)
	assert.False(t, result.Capabilities.Tools.ListChanged)
}

func TestDispatcherToolsListHonorsToolset(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&tools.Tool{Name: "core-tool", Tier: tools.TierCore, Execute: noopExecute}))
	require.NoError(t, reg.Register(&tools.Tool{Name: "memory-tool", Tier: tools.TierMemory, Execute: noopExecute}))

	d := NewDispatcher(reg, tools.ToolsetCore)
	resp := d.Handle(context.Background(), rpcRequest{ID: 2, Method: "tools/list"})
	require.Nil(t, resp.Error)

	var result toolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "core-tool", result.Tools[0].Name)
}

func noopExecute(ctx context.Context, args map[string]any) (string, error) {
	return "{}", nil
}

func TestDispatcherToolsCallWrapsResultAsTextContent(t *testing.T) {
	d := newTestDispatcher(t)
	params, _ := json.Marshal(toolsCallParams{Name: "echo", Arguments: map[string]any{"term": "widget"}})

	resp := d.Handle(context.Background(), rpcRequest{ID: 3, Method: "tools/call", Params: params})
	require.Nil(t, resp.Error)

	var result toolsCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "widget")
}

func TestDispatcherToolsCallMissingRequiredArgIsInvalidParams(t *testing.T) {
	d := newTestDispatcher(t)
	params, _ := json.Marshal(toolsCallParams{Name: "echo", Arguments: map[string]any{}})

	resp := d.Handle(context.Background(), rpcRequest{ID: 4, Method: "tools/call", Params: params})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestDispatcherUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Handle(context.Background(), rpcRequest{ID: 5, Method: "bogus"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestStdioServerRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	s := NewStdioServer(d)

	req := rpcRequest{ID: 1, Method: "tools/list"}
	line, err := json.Marshal(req)
	require.NoError(t, err)

	in := bytes.NewReader(append(line, '\n'))
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.ID)
}
