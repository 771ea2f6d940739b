// Package tools exposes kotadb's fixed tool catalog (§4.7): named
// operations over the indexer, query layer, sync service, and store,
// each with a JSON schema and a tier tag controlling toolset visibility.
package tools

import (
	"context"
	"fmt"

	"kotadb/internal/kerrors"
)

var (
	errToolNameEmpty  = fmt.Errorf("%w: tool name is empty", kerrors.ErrInvalidParams)
	errToolExecuteNil = fmt.Errorf("%w: tool has no Execute function", kerrors.ErrInvalidParams)
)

// Tier classifies a tool for toolset filtering (§4.7).
type Tier string

const (
	TierCore      Tier = "core"
	TierSync      Tier = "sync"
	TierMemory    Tier = "memory"
	TierExpertise Tier = "expertise"
)

// Toolset names a caller-selected bundle of tiers.
type Toolset string

const (
	ToolsetCore    Toolset = "core"
	ToolsetDefault Toolset = "default"
	ToolsetMemory  Toolset = "memory"
	ToolsetFull    Toolset = "full"
)

// tiersForToolset expands a toolset into the tiers it admits, per §4.7:
// core ⊂ default ⊂ memory ⊂ full.
func tiersForToolset(ts Toolset) map[Tier]bool {
	switch ts {
	case ToolsetCore:
		return map[Tier]bool{TierCore: true}
	case ToolsetDefault:
		return map[Tier]bool{TierCore: true, TierSync: true}
	case ToolsetMemory:
		return map[Tier]bool{TierCore: true, TierSync: true, TierMemory: true}
	case ToolsetFull:
		return map[Tier]bool{TierCore: true, TierSync: true, TierMemory: true, TierExpertise: true}
	default:
		return nil
	}
}

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Default     any            `json:"default,omitempty"`
	Enum        []any          `json:"enum,omitempty"`
	Items       *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for a tool's arguments.
type ToolSchema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is a tool's implementation: raw args in, a result string out.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a single named operation in the catalog.
type Tool struct {
	Name        string
	Description string
	Tier        Tier
	Execute     ExecuteFunc
	Schema      ToolSchema
}

// Validate checks that a tool definition is well-formed before registration.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return errToolNameEmpty
	}
	if t.Execute == nil {
		return errToolExecuteNil
	}
	return nil
}

// ToolResult wraps a tool's execution outcome with timing, the same
// discipline the Registry applies to every call.
type ToolResult struct {
	ToolName   string
	Result     string
	Error      error
	DurationMs int64
}

// IsSuccess reports whether the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
