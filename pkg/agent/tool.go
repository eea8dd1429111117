// Package agent implements the hierarchical agent pipeline of spec.md
// §4.3: a Manager that routes a query to one of three specialists, each
// armed with a typed tool registry, plus the deterministic overrides
// that bypass LLM routing entirely for cheap, common cases.
package agent

import (
	"context"
	"fmt"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/llm"
)

// Handler executes one tool call against the running query's
// ExecutionContext. It returns the tool's textual result, or an error
// the caller formats as "Tool X failed: …" (spec.md §4.3 tool
// protocol — tools never panic across this boundary).
type Handler func(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error)

// Tool pairs a typed input schema with its handler.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Registry is an ordered, named set of tools available to one agent.
type Registry struct {
	order []string
	byName map[string]Tool
}

// NewRegistry builds a Registry from the given tools, preserving order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.order = append(r.order, t.Name)
		r.byName[t.Name] = t
	}
	return r
}

// Defs returns the tool definitions for an llm.CompletionRequest.
func (r *Registry) Defs() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		defs = append(defs, llm.ToolDef{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return defs
}

// Invoke dispatches a tool call by name (spec.md §4.3: "returns either
// Ok(string|structured) or Err(kind, message); tools themselves never
// throw across the boundary" — a call to an unregistered name is
// itself reported as such an error, not a Go panic).
func (r *Registry) Invoke(ctx context.Context, ec *ExecutionContext, name string, input map[string]any) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown tool %q", name))
	}
	ec.ToolsInvoked = append(ec.ToolsInvoked, name)
	return t.Handler(ctx, ec, input)
}
