package agent

import (
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/contextmgr"
	"github.com/commandcenter/commandcenter/pkg/kb"
	"github.com/commandcenter/commandcenter/pkg/runbook"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/commandcenter/commandcenter/pkg/websearch"
	"github.com/google/uuid"
)

// ExecutionContext carries one query's state through the orchestrator
// and into tool handlers, threaded by reference so tool invocations can
// append to ToolsInvoked and PartialOutputs as they run (spec.md §4.3
// "state per query: iteration_count, tools_invoked, partial_outputs").
type ExecutionContext struct {
	SessionID uuid.UUID
	UserID    string
	Query     string
	Bundle    contextmgr.Bundle
	QueryType config.QueryType

	IterationCount int
	ToolsInvoked   []string
	PartialOutputs []string

	// Collaborators tool handlers need. Any may be nil in a deployment
	// that does not wire that capability (e.g. no telemetry store in
	// a KB-only test harness); handlers report a clear tool error
	// rather than panicking on a nil collaborator.
	Telemetry *store.TelemetryStore
	KB        *kb.Service
	WebSearch websearch.Provider
	Runbook   *runbook.Service
}

// AgentResult is the output contract of one full Ask (spec.md §4.3
// "Output contract").
type AgentResult struct {
	Response      string
	AgentRole     string
	DurationMs    int64
	SessionID     uuid.UUID
	ContextTokens int
	CacheHit      bool
	QueryType     config.QueryType
}
