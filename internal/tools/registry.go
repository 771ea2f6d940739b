package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kotadb/internal/kerrors"
	"kotadb/internal/logging"
)

// Registry holds every registered Tool and a byTier index for toolset
// filtering. Thread-safe; registration can happen at any time, not just
// at init.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	byTier map[Tier][]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		byTier: make(map[Tier][]*Tool),
	}
}

// Register adds a tool, rejecting a duplicate name.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: tool %s already registered", kerrors.ErrConflict, tool.Name)
	}

	r.tools[tool.Name] = tool
	r.byTier[tool.Tier] = append(r.byTier[tool.Tier], tool)
	logging.ToolsDebug("registered tool %s (tier=%s)", tool.Name, tool.Tier)
	return nil
}

// MustRegister registers a tool and panics on error; used for static
// catalog registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// ForToolset returns every tool whose tier is admitted by toolset, sorted
// by name, hiding tools a caller's toolset selection excludes (§4.7).
func (r *Registry) ForToolset(ts Toolset) []*Tool {
	admitted := tiersForToolset(ts)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Tool
	for _, t := range r.tools {
		if admitted[t.Tier] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllowsInToolset reports whether name's tool is visible under toolset,
// used to reject a call to a tool hidden from the caller's toolset.
func (r *Registry) AllowsInToolset(name string, ts Toolset) bool {
	tool := r.Get(name)
	if tool == nil {
		return false
	}
	return tiersForToolset(ts)[tool.Tier]
}

// All returns every registered tool.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name, rejecting unknown names or a toolset that
// doesn't admit it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, ts Toolset) (*ToolResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: tool %s", kerrors.ErrNotFound, name)
	}
	if !r.AllowsInToolset(name, ts) {
		return nil, fmt.Errorf("%w: tool %s not available in toolset %s", kerrors.ErrInvalidParams, name, ts)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool runs a specific tool, validating required args first and
// timing the call, the same wrapping discipline every tool call gets.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args map[string]any) (*ToolResult, error) {
	start := time.Now()

	if err := validateArgs(tool, args); err != nil {
		return &ToolResult{ToolName: tool.Name, Error: err, DurationMs: time.Since(start).Milliseconds()}, err
	}

	logging.ToolsDebug("executing tool %s", tool.Name)
	result, err := tool.Execute(ctx, args)
	duration := time.Since(start)
	logging.ToolsDebug("tool %s completed in %v (success=%v)", tool.Name, duration, err == nil)

	return &ToolResult{
		ToolName:   tool.Name,
		Result:     result,
		Error:      err,
		DurationMs: duration.Milliseconds(),
	}, err
}

func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", kerrors.ErrInvalidParams, required)
		}
	}
	return nil
}

var globalRegistry = NewRegistry()

// Global returns the process-wide tool registry.
func Global() *Registry { return globalRegistry }
