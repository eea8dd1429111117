package agent

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/contextmgr"
	"github.com/commandcenter/commandcenter/pkg/conversation"
	"github.com/commandcenter/commandcenter/pkg/kb"
	"github.com/commandcenter/commandcenter/pkg/llm"
	"github.com/commandcenter/commandcenter/pkg/runbook"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/commandcenter/commandcenter/pkg/websearch"
	"github.com/google/uuid"
)

const maxIterationsFallback = "I could not confidently answer that — please rephrase or narrow the question."

// Orchestrator is the top-level entry point for spec.md §4.3's "execute
// one user query through a hierarchical agent pipeline" responsibility,
// wiring the context manager, conversation store, manager/specialists,
// and agent-execution logging together.
type Orchestrator struct {
	contextMgr *contextmgr.Manager
	conv       *conversation.Service
	executions *store.ExecutionStore
	manager    *Manager

	telemetry     *store.TelemetryStore
	kb            *kb.Service
	webSearch     websearch.Provider
	runbook       *runbook.Service
	queryDeadline time.Duration
	logger        *slog.Logger
}

// Config bundles the collaborators and tunables New needs.
type Config struct {
	ContextMgr    *contextmgr.Manager
	Conversation  *conversation.Service
	Executions    *store.ExecutionStore
	Classifier    *contextmgr.Classifier
	LLMClient     llm.Client
	Telemetry     *store.TelemetryStore
	KB            *kb.Service
	WebSearch     websearch.Provider
	Runbook       *runbook.Service
	ManagerMaxIterations    int
	SpecialistMaxIterations int
	QueryDeadline time.Duration
	Logger        *slog.Logger
}

// New builds an Orchestrator with the Manager and its three specialists
// wired to their tool registries (spec.md §4.3 agent roster).
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deadline := cfg.QueryDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	status := &Specialist{Role: "status", Backstory: statusBackstory, Tools: NewRegistry(statusTools()...), Client: cfg.LLMClient, MaxIterations: cfg.SpecialistMaxIterations}
	planner := &Specialist{Role: "planner", Backstory: plannerBackstory, Tools: NewRegistry(plannerTools()...), Client: cfg.LLMClient, MaxIterations: cfg.SpecialistMaxIterations}
	research := &Specialist{Role: "research", Backstory: researchBackstory, Tools: NewRegistry(researchTools()...), Client: cfg.LLMClient, MaxIterations: cfg.SpecialistMaxIterations}

	manager := &Manager{
		Classifier:    cfg.Classifier,
		Client:        cfg.LLMClient,
		MaxIterations: cfg.ManagerMaxIterations,
		Status:        status,
		Planner:       planner,
		Research:      research,
	}

	return &Orchestrator{
		contextMgr:    cfg.ContextMgr,
		conv:          cfg.Conversation,
		executions:    cfg.Executions,
		manager:       manager,
		telemetry:     cfg.Telemetry,
		kb:            cfg.KB,
		webSearch:     cfg.WebSearch,
		runbook:       cfg.Runbook,
		queryDeadline: deadline,
		logger:        logger,
	}
}

const (
	statusBackstory   = "You are the Status Specialist. Answer real-time and historical telemetry questions about the site's battery, PV, and load using the provided tools. Be concise and cite figures."
	plannerBackstory  = "You are the Planner Specialist. Answer planning and optimization questions about battery posture, miner scheduling, and 24h energy plans using the provided tools. Be concrete and actionable."
	researchBackstory = "You are the Research Specialist. Answer questions needing information beyond this site's knowledge base by searching the web and synthesizing with local knowledge. Cite your sources."
)

// Ask runs spec.md §4.3's full pipeline for one query: ensure the
// session, assemble context, route, record the turn, and return the
// output contract.
func (o *Orchestrator) Ask(ctx context.Context, query string, sessionID uuid.UUID, userID string) (AgentResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.queryDeadline)
	defer cancel()

	sessionID, err := o.conv.EnsureSession(ctx, sessionID)
	if err != nil {
		return AgentResult{}, err
	}
	if _, err := o.conv.Append(ctx, sessionID, store.MessageRoleUser, query); err != nil {
		return AgentResult{}, err
	}

	bundle, err := o.contextMgr.BundleFor(ctx, query, sessionID, userID)
	if err != nil {
		return AgentResult{}, err
	}

	ec := &ExecutionContext{
		SessionID: sessionID,
		UserID:    userID,
		Query:     query,
		Bundle:    bundle,
		QueryType: bundle.QueryType,
		Telemetry: o.telemetry,
		KB:        o.kb,
		WebSearch: o.webSearch,
		Runbook:   o.runbook,
	}

	response, agentRole, runErr := o.manager.Route(ctx, ec)
	execErr := ""
	switch {
	case errors.Is(runErr, ErrMaxIterations):
		response, agentRole = maxIterationsFallback, "manager"
		execErr = "max_iterations"
		o.logger.Warn("agent exhausted iteration budget", "session_id", sessionID, "query_type", bundle.QueryType)
	case runErr != nil:
		response, agentRole = fallbackForError(runErr), "manager"
		execErr = string(apperr.KindOf(runErr))
		o.logger.Error("agent run failed", "session_id", sessionID, "error", runErr)
	}

	duration := time.Since(start)

	// Persist the turn even when the query deadline has already expired.
	persistCtx := context.WithoutCancel(ctx)

	if _, err := o.conv.Append(persistCtx, sessionID, store.MessageRoleAssistant, response,
		conversation.WithAgentRole(agentRole),
		conversation.WithDurationMs(int32(duration.Milliseconds())),
		conversation.WithTokens(int32(bundle.TotalTokens)),
		conversation.WithCacheHit(bundle.CacheHit),
		conversation.WithQueryType(string(bundle.QueryType)),
	); err != nil {
		o.logger.Error("failed to append assistant message", "error", err)
	}

	if o.executions != nil {
		exec := store.AgentExecution{
			SessionID:  sessionID,
			AgentRole:  agentRole,
			QueryType:  sql.NullString{String: string(bundle.QueryType), Valid: bundle.QueryType != ""},
			TokensIn:   bundle.TotalTokens,
			CacheHit:   bundle.CacheHit,
			DurationMs: int(duration.Milliseconds()),
			ToolsUsed:  ec.ToolsInvoked,
			Error:      sql.NullString{String: execErr, Valid: execErr != ""},
		}
		if err := o.executions.Record(persistCtx, exec); err != nil {
			o.logger.Error("failed to record agent execution", "error", err)
		}
	}

	return AgentResult{
		Response:      response,
		AgentRole:     agentRole,
		DurationMs:    duration.Milliseconds(),
		SessionID:     sessionID,
		ContextTokens: bundle.TotalTokens,
		CacheHit:      bundle.CacheHit,
		QueryType:     bundle.QueryType,
	}, nil
}

func fallbackForError(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUpstreamTransient, apperr.KindRateLimited:
		return "I'm having trouble reaching a required service right now — please try again shortly."
	default:
		return "Something went wrong while answering that — please try again or rephrase the question."
	}
}
