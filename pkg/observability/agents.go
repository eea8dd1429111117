package observability

import (
	"context"
	"time"
)

// Thresholds for degrading an agent role's reported status. There is
// no spec-given number for these; picked conservatively so a single
// slow or failed turn doesn't flip a role's status, but a sustained
// problem does.
const (
	agentDegradedErrorRate  = 0.2
	agentDegradedP95Millis  = 10_000
)

// AgentRoleHealth is one role's rollup for the agents.health RPC
// (spec.md §6), derived from store.ExecutionStore.RollupSince.
type AgentRoleHealth struct {
	AgentRole       string  `json:"agent_role"`
	Status          string  `json:"status"`
	TotalExecutions int     `json:"total_executions"`
	ErrorRate       float64 `json:"error_rate"`
	P50DurationMs   float64 `json:"p50_duration_ms"`
	P95DurationMs   float64 `json:"p95_duration_ms"`
	LastError       string  `json:"last_error,omitempty"`
}

// AgentsHealth rolls up agent_executions over the configured window
// into one entry per agent role.
func (s *Service) AgentsHealth(ctx context.Context) ([]AgentRoleHealth, error) {
	since := time.Now().Add(-s.window)
	stats, err := s.executions.RollupSince(ctx, since)
	if err != nil {
		return nil, err
	}

	out := make([]AgentRoleHealth, 0, len(stats))
	for _, st := range stats {
		var errRate float64
		if st.Total > 0 {
			errRate = float64(st.Errors) / float64(st.Total)
		}

		status := StatusHealthy
		if errRate >= agentDegradedErrorRate || st.P95DurationMs >= agentDegradedP95Millis {
			status = StatusDegraded
		}

		out = append(out, AgentRoleHealth{
			AgentRole:       st.AgentRole,
			Status:          status,
			TotalExecutions: st.Total,
			ErrorRate:       errRate,
			P50DurationMs:   st.P50DurationMs,
			P95DurationMs:   st.P95DurationMs,
			LastError:       st.LastError.String,
		})
	}
	return out, nil
}
