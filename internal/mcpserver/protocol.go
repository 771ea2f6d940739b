// Package mcpserver is the server side of the stdio RPC protocol (§4.8): it
// reads newline-delimited JSON-RPC-style requests, dispatches them against
// a tools.Registry, and writes newline-delimited responses. It mirrors the
// teacher's client-side transport in internal/mcp/transport_stdio.go, but
// reversed: this process answers requests rather than issuing them.
package mcpserver

import (
	"encoding/json"

	"kotadb/internal/tools"
)

const protocolVersion = "2024-11-05"

// rpcRequest is one line of stdin: {id, method, params}.
type rpcRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is one line of stdout: either a result or an error, never both.
type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// rpcError uses the canonical {code, message} shape (§4.8, §7).
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC-ish error codes, per §7's kerrors-to-code mapping.
const (
	codeInvalidParams = -32602
	codeNotFound      = -32001
	codeConflict      = -32002
	codeInternal      = -32000
)

type initializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      json.RawMessage `json:"clientInfo,omitempty"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      serverInfo   `json:"serverInfo"`
	Capabilities    capabilities `json:"capabilities"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type capabilities struct {
	Tools toolsCapability `json:"tools"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type toolsListResult struct {
	Tools []toolDescriptor `json:"tools"`
}

// toolDescriptor is one tools/list entry, the tool's schema in MCP's
// inputSchema shape rather than kotadb's internal ToolSchema.
type toolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"inputSchema"`
}

type inputSchema struct {
	Type       string                    `json:"type"`
	Required   []string                  `json:"required,omitempty"`
	Properties map[string]tools.Property `json:"properties,omitempty"`
}

func toDescriptor(t *tools.Tool) toolDescriptor {
	return toolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: inputSchema{
			Type:       "object",
			Required:   t.Schema.Required,
			Properties: t.Schema.Properties,
		},
	}
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// contentBlock wraps a tool's JSON result as a single text content block,
// the shape tools/call responses use (§4.8 step 3).
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolsCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}
