package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTelemetryStore_Insert_SolArkUsesOnConflictDoNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := &TelemetryStore{db: db}
	sample := TelemetrySample{Timestamp: time.Unix(1700000000, 0)}

	mock.ExpectExec(`INSERT INTO telemetry_solark`).
		WithArgs(sample.Timestamp, sample.PlantID, sample.SOC, sample.BatteryPower, sample.BatteryVoltage,
			sample.BatteryCurrent, sample.PVPower, sample.LoadPower, sample.GridPower,
			sample.PVToLoad, sample.PVToBat, sample.BatToLoad, sample.GridToLoad).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ts.Insert(context.Background(), config.VendorSolArk, sample)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTelemetryStore_Insert_UnknownVendorIsInvalidInput(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := &TelemetryStore{db: db}
	err = ts.Insert(context.Background(), config.Vendor("unknown"), TelemetrySample{})
	require.Error(t, err)
}

func TestConversationStore_EnsureSession_InsertsThenFetches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cs := &ConversationStore{db: db}
	id := uuid.New()

	mock.ExpectExec(`INSERT INTO conversations`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"id", "title", "agent_role", "status", "created_at", "updated_at"}).
		AddRow(id, nil, nil, "active", time.Now(), time.Now())
	mock.ExpectQuery(`SELECT id, title, agent_role, status, created_at, updated_at`).WithArgs(id).WillReturnRows(rows)

	conv, err := cs.EnsureSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, conv.ID)
	require.Equal(t, "active", conv.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
