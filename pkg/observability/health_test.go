package observability

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/commandcenter/commandcenter/pkg/telemetry"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, pollers *telemetry.Manager) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	return New(db, pollers, st.Executions, time.Hour, nil), mock
}

func TestHealth_AllHealthyWhenDBPingsAndNoPollers(t *testing.T) {
	svc, mock := newTestService(t, telemetry.NewManager())
	mock.ExpectPing()

	report := svc.Health(context.Background())
	require.Equal(t, StatusHealthy, report.Status)
	require.Equal(t, Check{Status: StatusHealthy}, report.Checks["database"])
}

func TestHealth_DBPingFailureIsUnhealthy(t *testing.T) {
	svc, mock := newTestService(t, telemetry.NewManager())
	mock.ExpectPing().WillReturnError(require.AnError)

	report := svc.Health(context.Background())
	require.Equal(t, StatusUnhealthy, report.Status)
	require.Equal(t, StatusUnhealthy, report.Checks["database"].Status)
}

func TestHealth_UnhealthyPollerDegradesReport(t *testing.T) {
	client := telemetry.NewFakeVendorClient()
	client.Errs = []error{require.AnError, require.AnError, require.AnError}
	poller := telemetry.NewPoller(config.VendorSolArk, client, nil,
		config.PollConfig{Interval: time.Minute}, config.RateLimitConfig{PerHour: 60}, nil)

	svc, mock := newTestService(t, telemetry.NewManager(poller))
	mock.ExpectPing()

	report := svc.Health(context.Background())
	require.Equal(t, StatusDegraded, report.Status)
	require.Equal(t, StatusDegraded, report.Checks["poller_solark"].Status)
}
