package agent

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestTelemetry(t *testing.T) (*store.TelemetryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db).Telemetry, mock
}

var telemetryCols = []string{"timestamp", "plant_id", "soc", "battery_power", "battery_voltage",
	"battery_current", "pv_power", "load_power", "grid_power", "pv_to_load", "pv_to_bat", "bat_to_load", "grid_to_load"}

func TestLatestSampleHandler_FormatsReading(t *testing.T) {
	tel, mock := newTestTelemetry(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT "timestamp", plant_id, soc`).
		WillReturnRows(sqlmock.NewRows(telemetryCols).
			AddRow(now, "plant-1", 72.5, 1200.0, 52.1, 23.0, 3000.0, 1800.0, 0.0, true, false, false, false))

	ec := &ExecutionContext{Telemetry: tel}
	out, err := latestSampleHandler(context.Background(), ec, map[string]any{"vendor": "solark"})
	require.NoError(t, err)
	require.Contains(t, out, "SOC=72.5%")
	require.Contains(t, out, "solark")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSampleHandler_NilTelemetryStoreErrors(t *testing.T) {
	ec := &ExecutionContext{}
	_, err := latestSampleHandler(context.Background(), ec, map[string]any{})
	require.Error(t, err)
}

func TestVendorArg_RejectsUnknownVendor(t *testing.T) {
	_, err := vendorArg(map[string]any{"vendor": "not-a-vendor"})
	require.Error(t, err)
}

func TestVendorArg_DefaultsToSolArk(t *testing.T) {
	v, err := vendorArg(map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "solark", string(v))
}

func TestStatsHandler_ComputesMinMaxAvg(t *testing.T) {
	tel, mock := newTestTelemetry(t)
	now := time.Now()
	rows := sqlmock.NewRows(telemetryCols).
		AddRow(now.Add(-2*time.Hour), nil, 50.0, 100.0, nil, nil, 500.0, 400.0, nil, true, false, false, false).
		AddRow(now.Add(-1*time.Hour), nil, 70.0, 300.0, nil, nil, 600.0, 400.0, nil, true, false, false, false)
	mock.ExpectQuery(`SELECT "timestamp", plant_id, soc`).WillReturnRows(rows)

	ec := &ExecutionContext{Telemetry: tel}
	out, err := statsHandler(context.Background(), ec, map[string]any{"vendor": "victron", "hours": 24.0})
	require.NoError(t, err)
	require.Contains(t, out, "min=50.0%")
	require.Contains(t, out, "max=70.0%")
	require.Contains(t, out, "avg=60.0%")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsHandler_NoSamplesReportsEmpty(t *testing.T) {
	tel, mock := newTestTelemetry(t)
	mock.ExpectQuery(`SELECT "timestamp", plant_id, soc`).WillReturnRows(sqlmock.NewRows(telemetryCols))

	ec := &ExecutionContext{Telemetry: tel}
	out, err := statsHandler(context.Background(), ec, map[string]any{"vendor": "solark"})
	require.NoError(t, err)
	require.Contains(t, out, "no samples")
}
