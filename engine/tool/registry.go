// Package tool provides the model-facing tool contract and the registry
// that dispatches tool calls by name.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool is returned when a dispatch names an unregistered tool.
var ErrUnknownTool = errors.New("unknown tool")

// Definition is the static, model-facing descriptor of a callable tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Source is citation metadata produced by a tool execution.
type Source struct {
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// Tool is implemented by every model-invokable capability.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// SourceRecorder is implemented by tools that track which sources their
// most recent execution touched.
type SourceRecorder interface {
	Sources() []Source
	ResetSources()
}

// Registry holds the available tools. Registration is keyed by tool
// name; registering a duplicate name replaces the earlier tool.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Definition().Name] = t
}

// Definitions returns every registered tool schema, sorted by name so
// the model sees a stable listing.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch executes the named tool with the given arguments.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args)
}

// DrainSources collects the sources recorded by all tools since the last
// drain, deduplicated in collection order, and resets them. Draining is
// a single-use handoff: sources never carry over into another query.
func (r *Registry) DrainSources() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Source
	seen := make(map[Source]bool)
	for _, name := range names {
		rec, ok := r.tools[name].(SourceRecorder)
		if !ok {
			continue
		}
		for _, src := range rec.Sources() {
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
		rec.ResetSources()
	}
	return out
}
