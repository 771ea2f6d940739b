package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
	"kotadb/internal/tools"
)

// Dispatcher holds the negotiation state and tool registry shared by the
// stdio scanner loop and the optional HTTP front-end, so both transports
// funnel through one dispatch path (§4.8.1).
type Dispatcher struct {
	registry *tools.Registry
	toolset  tools.Toolset

	mu              sync.Mutex
	negotiatedProto string
}

// NewDispatcher builds a Dispatcher serving reg, filtered to toolset.
func NewDispatcher(reg *tools.Registry, toolset tools.Toolset) *Dispatcher {
	return &Dispatcher{registry: reg, toolset: toolset}
}

// Handle processes one decoded request and returns its response, never
// erroring itself — protocol-level problems are encoded into the response.
func (d *Dispatcher) Handle(ctx context.Context, req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown method %s", req.Method))
	}
}

func (d *Dispatcher) handleInitialize(req rpcRequest) rpcResponse {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, "malformed initialize params")
		}
	}

	d.mu.Lock()
	d.negotiatedProto = params.ProtocolVersion
	d.mu.Unlock()

	result := initializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      serverInfo{Name: "kotadb", Version: "1"},
		Capabilities:    capabilities{Tools: toolsCapability{ListChanged: false}},
	}
	return okResponse(req.ID, result)
}

// NegotiatedProtocol returns the protocol version the client declared at
// initialize, used by the HTTP front-end to validate a later
// MCP-Protocol-Version header against it.
func (d *Dispatcher) NegotiatedProtocol() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.negotiatedProto
}

func (d *Dispatcher) handleToolsList(req rpcRequest) rpcResponse {
	catalog := d.registry.ForToolset(d.toolset)
	descriptors := make([]toolDescriptor, 0, len(catalog))
	for _, t := range catalog {
		descriptors = append(descriptors, toDescriptor(t))
	}
	return okResponse(req.ID, toolsListResult{Tools: descriptors})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req rpcRequest) rpcResponse {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "malformed tools/call params")
	}

	result, err := d.registry.Execute(ctx, params.Name, params.Arguments, d.toolset)
	if err != nil {
		logging.ToolsWarn("tools/call %s failed: %v", params.Name, err)
		return errorResponse(req.ID, codeForError(err), err.Error())
	}

	payload := toolsCallResult{Content: []contentBlock{{Type: "text", Text: result.Result}}}
	return okResponse(req.ID, payload)
}

func codeForError(err error) int {
	switch {
	case errors.Is(err, kerrors.ErrNotFound):
		return codeNotFound
	case errors.Is(err, kerrors.ErrConflict):
		return codeConflict
	case errors.Is(err, kerrors.ErrInvalidParams):
		return codeInvalidParams
	default:
		return codeInternal
	}
}

func okResponse(id int, v any) rpcResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(id, codeInternal, fmt.Sprintf("failed to encode result: %v", err))
	}
	return rpcResponse{ID: id, Result: data}
}

func errorResponse(id, code int, message string) rpcResponse {
	return rpcResponse{ID: id, Error: &rpcError{Code: code, Message: message}}
}
