package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AgentExecution is one recorded agent turn (spec.md §3
// AgentExecution, used by pkg/observability's agents.health rollup).
type AgentExecution struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	AgentRole  string
	QueryType  sql.NullString
	TokensIn   int
	CacheHit   bool
	DurationMs int
	ToolsUsed  []string
	Error      sql.NullString
	CreatedAt  time.Time
}

// ExecutionStore persists agent execution records.
type ExecutionStore struct {
	db *sql.DB
}

// Record inserts an AgentExecution.
func (s *ExecutionStore) Record(ctx context.Context, e AgentExecution) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_executions (id, session_id, agent_role, query_type, tokens_in, cache_hit,
			duration_ms, tools_used, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.SessionID, e.AgentRole, e.QueryType, e.TokensIn, e.CacheHit, e.DurationMs,
		pq.Array(e.ToolsUsed), e.Error)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record agent execution", err)
	}
	return nil
}

// DeleteOlderThan removes execution records created before cutoff,
// returning the number of rows deleted. Backs the retention-purge
// background job (supplemented beyond spec.md §6).
func (s *ExecutionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_executions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "delete old agent executions", err)
	}
	return res.RowsAffected()
}

// AgentRoleStats is the per-role rollup computed for agents.health
// (spec.md §6): success rate and duration percentiles over a recent
// window.
type AgentRoleStats struct {
	AgentRole    string
	Total        int
	Errors       int
	P50DurationMs float64
	P95DurationMs float64
	LastError    sql.NullString
}

// RollupSince computes per-agent-role stats over executions created
// at or after since.
func (s *ExecutionStore) RollupSince(ctx context.Context, since time.Time) ([]AgentRoleStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_role,
			count(*) AS total,
			count(*) FILTER (WHERE error IS NOT NULL) AS errors,
			percentile_cont(0.5) WITHIN GROUP (ORDER BY duration_ms) AS p50,
			percentile_cont(0.95) WITHIN GROUP (ORDER BY duration_ms) AS p95,
			(array_agg(error ORDER BY created_at DESC) FILTER (WHERE error IS NOT NULL))[1] AS last_error
		FROM agent_executions
		WHERE created_at >= $1
		GROUP BY agent_role`, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "rollup agent executions", err)
	}
	defer rows.Close()

	var out []AgentRoleStats
	for rows.Next() {
		var st AgentRoleStats
		if err := rows.Scan(&st.AgentRole, &st.Total, &st.Errors, &st.P50DurationMs, &st.P95DurationMs, &st.LastError); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan agent role stats", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
