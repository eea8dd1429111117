package telemetry

import (
	"context"
	"time"

	"github.com/commandcenter/commandcenter/pkg/store"
)

// Sample is a vendor-normalized telemetry reading, ready to persist.
// Fields mirror store.TelemetrySample but keep the poller decoupled
// from the storage package's nullable-column types.
type Sample struct {
	Timestamp      time.Time
	PlantID        string
	SOC            *float64
	BatteryPower   *float64
	BatteryVoltage *float64
	BatteryCurrent *float64
	PVPower        *float64
	LoadPower      *float64
	GridPower      *float64
	PVToLoad       bool
	PVToBat        bool
	BatToLoad      bool
	GridToLoad     bool
}

// VendorClient fetches and normalizes a single telemetry reading from
// one inverter vendor's API (spec.md §4.4 fetch_from_vendor).
//
// ErrRateLimited must be returned (wrapped or bare) when the vendor
// responds with HTTP 429, so the poller can reconcile its local token
// bucket against the vendor's own view of the limit.
type VendorClient interface {
	FetchLatest(ctx context.Context) (Sample, error)
}

func toStoreSample(s Sample) store.TelemetrySample {
	return store.TelemetrySample{
		Timestamp:      s.Timestamp,
		PlantID:        nullString(s.PlantID),
		SOC:            nullFloat(s.SOC),
		BatteryPower:   nullFloat(s.BatteryPower),
		BatteryVoltage: nullFloat(s.BatteryVoltage),
		BatteryCurrent: nullFloat(s.BatteryCurrent),
		PVPower:        nullFloat(s.PVPower),
		LoadPower:      nullFloat(s.LoadPower),
		GridPower:      nullFloat(s.GridPower),
		PVToLoad:       s.PVToLoad,
		PVToBat:        s.PVToBat,
		BatToLoad:      s.BatToLoad,
		GridToLoad:     s.GridToLoad,
	}
}
