package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotadb/internal/tools"
)

func newTestHTTPDispatcher() *Dispatcher {
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{Name: "core-tool", Tier: tools.TierCore, Execute: noopExecute})
	return NewDispatcher(reg, tools.ToolsetCore)
}

func TestHTTPRouterHandlesToolsList(t *testing.T) {
	router := NewHTTPRouter(newTestHTTPDispatcher())

	body, _ := json.Marshal(rpcRequest{ID: 1, Method: "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
}

func TestHTTPRouterRejectsOversizedSessionID(t *testing.T) {
	router := NewHTTPRouter(newTestHTTPDispatcher())

	body, _ := json.Marshal(rpcRequest{ID: 1, Method: "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set(headerSessionID, string(make([]byte, maxSessionIDBytes+1)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPRouterRejectsMismatchedProtocolVersion(t *testing.T) {
	d := newTestHTTPDispatcher()
	initParams, _ := json.Marshal(initializeParams{ProtocolVersion: protocolVersion})
	d.Handle(context.Background(), rpcRequest{ID: 1, Method: "initialize", Params: initParams})

	router := NewHTTPRouter(d)
	body, _ := json.Marshal(rpcRequest{ID: 2, Method: "tools/list"})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set(headerProtocolVersion, "1999-01-01")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
