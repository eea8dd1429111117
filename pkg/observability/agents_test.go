package observability

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAgentsHealth_ComputesErrorRateAndStatus(t *testing.T) {
	svc, mock := newTestService(t, nil)

	rows := sqlmock.NewRows([]string{"agent_role", "total", "errors", "p50", "p95", "last_error"}).
		AddRow("status", 10, 1, 120.0, 400.0, nil).
		AddRow("planner", 5, 3, 200.0, 15000.0, "model timeout")
	mock.ExpectQuery(`SELECT agent_role`).WillReturnRows(rows)

	results, err := svc.AgentsHealth(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "status", results[0].AgentRole)
	require.Equal(t, StatusHealthy, results[0].Status)
	require.InDelta(t, 0.1, results[0].ErrorRate, 0.0001)

	require.Equal(t, "planner", results[1].AgentRole)
	require.Equal(t, StatusDegraded, results[1].Status)
	require.Equal(t, "model timeout", results[1].LastError)
}

func TestAgentsHealth_EmptyWindowReturnsEmptySlice(t *testing.T) {
	svc, mock := newTestService(t, nil)
	mock.ExpectQuery(`SELECT agent_role`).
		WillReturnRows(sqlmock.NewRows([]string{"agent_role", "total", "errors", "p50", "p95", "last_error"}))

	results, err := svc.AgentsHealth(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestService_DefaultsToOneHourWindow(t *testing.T) {
	svc := New(nil, nil, nil, 0, nil)
	require.Equal(t, time.Hour, svc.window)
}
