package api

import (
	"net/http"

	"github.com/commandcenter/commandcenter/pkg/version"
	"github.com/gin-gonic/gin"
)

// healthResponse is the `health` RPC response (spec.md §6).
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// healthHandler handles GET /health. Never gated by API_KEY
// (spec.md §6: "API_KEY ... all non-health RPCs require header match").
func (s *Server) healthHandler(c *gin.Context) {
	report := s.observability.Health(c.Request.Context())

	status := http.StatusOK
	switch report.Status {
	case "unhealthy":
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, chk := range report.Checks {
		checks[name] = chk.Status
	}
	c.JSON(status, healthResponse{Status: report.Status, Version: version.Full(), Checks: checks})
}

// agentRoleHealthView is one entry of the `agents.health` RPC's
// per_agent list (spec.md §6).
type agentRoleHealthView struct {
	AgentRole       string  `json:"agent_role"`
	Status          string  `json:"status"`
	TotalExecutions int     `json:"total_executions"`
	ErrorRate       float64 `json:"error_rate"`
	P50DurationMs   float64 `json:"p50_duration_ms"`
	P95DurationMs   float64 `json:"p95_duration_ms"`
	LastError       string  `json:"last_error,omitempty"`
}

// agentsHealthResponse is the `agents.health` RPC response (spec.md §6).
type agentsHealthResponse struct {
	Overall   string                `json:"overall"`
	PerAgent  []agentRoleHealthView `json:"per_agent"`
}

// agentsHealthHandler handles GET /api/v1/agents/health.
func (s *Server) agentsHealthHandler(c *gin.Context) {
	roles, err := s.observability.AgentsHealth(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	overall := "healthy"
	out := make([]agentRoleHealthView, 0, len(roles))
	for _, r := range roles {
		if r.Status != "healthy" {
			overall = "degraded"
		}
		out = append(out, agentRoleHealthView{
			AgentRole:       r.AgentRole,
			Status:          r.Status,
			TotalExecutions: r.TotalExecutions,
			ErrorRate:       r.ErrorRate,
			P50DurationMs:   r.P50DurationMs,
			P95DurationMs:   r.P95DurationMs,
			LastError:       r.LastError,
		})
	}
	c.JSON(http.StatusOK, agentsHealthResponse{Overall: overall, PerAgent: out})
}
