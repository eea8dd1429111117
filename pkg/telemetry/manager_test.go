package telemetry

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestManager_HealthPreservesConstructionOrder(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	telemetry := store.New(db).Telemetry

	solark := NewPoller(config.VendorSolArk, NewFakeVendorClient(), telemetry,
		config.PollConfig{Interval: time.Minute}, config.RateLimitConfig{PerHour: 10}, nil)
	victron := NewPoller(config.VendorVictron, NewFakeVendorClient(), telemetry,
		config.PollConfig{Interval: 5 * time.Minute}, config.RateLimitConfig{PerHour: 10}, nil)

	m := NewManager(solark, victron)
	health := m.Health()
	require.Len(t, health, 2)
	require.Equal(t, config.VendorSolArk, health[0].Vendor)
	require.Equal(t, config.VendorVictron, health[1].Vendor)
}
