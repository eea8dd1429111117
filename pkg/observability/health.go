// Package observability aggregates operational signals — database
// connectivity, telemetry poller health, and agent execution stats —
// into the `health` and `agents.health` RPCs of spec.md §6. Grounded on
// the teacher's own health handler shape (pkg/api/handler_health.go):
// a checks map plus a single worst-status-wins overall status, built
// from this system's own components only, never an external dependency
// (spec.md's telemetry vendors and LLM provider are deliberately
// excluded here, same reasoning the teacher gives for excluding MCP
// servers from its own health check).
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/commandcenter/commandcenter/pkg/database"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/commandcenter/commandcenter/pkg/telemetry"
)

// Overall/per-check status values, matching the teacher's three-tier
// healthy/degraded/unhealthy vocabulary.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Check is one named health signal within a HealthReport.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthReport is the `health` RPC response shape (spec.md §6).
type HealthReport struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks"`
}

// Service computes HealthReports and agent-role rollups from this
// system's own storage and poller state.
type Service struct {
	db         *sql.DB
	pollers    *telemetry.Manager
	executions *store.ExecutionStore
	window     time.Duration
	logger     *slog.Logger
}

// New constructs a Service. window bounds how far back AgentsHealth
// looks when rolling up agent_executions (spec.md §6 agents.health).
func New(db *sql.DB, pollers *telemetry.Manager, executions *store.ExecutionStore, window time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Service{db: db, pollers: pollers, executions: executions, window: window, logger: logger}
}

// Health runs every check and folds them into one report. A check
// reporting unhealthy marks the whole report unhealthy; a degraded
// check only downgrades an otherwise-healthy report (an unhealthy
// database outranks a merely degraded poller).
func (s *Service) Health(ctx context.Context) HealthReport {
	checks := make(map[string]Check)
	status := StatusHealthy

	dbStatus := database.Health(ctx, s.db)
	if !dbStatus.Connected {
		status = StatusUnhealthy
		checks["database"] = Check{Status: StatusUnhealthy, Message: "database unreachable"}
	} else {
		checks["database"] = Check{Status: StatusHealthy}
	}

	if s.pollers != nil {
		for _, ph := range s.pollers.Health() {
			name := fmt.Sprintf("poller_%s", ph.Vendor)
			if ph.IsHealthy {
				checks[name] = Check{Status: StatusHealthy}
				continue
			}
			if status == StatusHealthy {
				status = StatusDegraded
			}
			checks[name] = Check{Status: StatusDegraded, Message: ph.LastError}
		}
	}

	return HealthReport{Status: status, Checks: checks}
}
