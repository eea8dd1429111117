package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/config"
)

// TelemetrySample is one polled reading from a vendor inverter/BMS
// (spec.md §3 TelemetrySample).
type TelemetrySample struct {
	Timestamp      time.Time
	PlantID        sql.NullString
	SOC            sql.NullFloat64
	BatteryPower   sql.NullFloat64
	BatteryVoltage sql.NullFloat64
	BatteryCurrent sql.NullFloat64
	PVPower        sql.NullFloat64
	LoadPower      sql.NullFloat64
	GridPower      sql.NullFloat64
	PVToLoad       bool
	PVToBat        bool
	BatToLoad      bool
	GridToLoad     bool
}

// TelemetryStore persists per-vendor telemetry samples, one table per
// vendor (spec.md §6 telemetry_<vendor>).
type TelemetryStore struct {
	db *sql.DB
}

func telemetryTable(vendor config.Vendor) (string, error) {
	switch vendor {
	case config.VendorSolArk:
		return "telemetry_solark", nil
	case config.VendorVictron:
		return "telemetry_victron", nil
	default:
		return "", apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown telemetry vendor %q", vendor))
	}
}

// Insert upserts a sample, making duplicate (vendor, timestamp) writes
// a no-op (spec.md §8 idempotence: "polling the same reading twice
// never creates a duplicate row").
func (s *TelemetryStore) Insert(ctx context.Context, vendor config.Vendor, sample TelemetrySample) error {
	table, err := telemetryTable(vendor)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s ("timestamp", plant_id, soc, battery_power, battery_voltage, battery_current,
			pv_power, load_power, grid_power, pv_to_load, pv_to_bat, bat_to_load, grid_to_load)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT ("timestamp") DO NOTHING`, table)

	_, err = s.db.ExecContext(ctx, query, sample.Timestamp, sample.PlantID, sample.SOC,
		sample.BatteryPower, sample.BatteryVoltage, sample.BatteryCurrent, sample.PVPower,
		sample.LoadPower, sample.GridPower, sample.PVToLoad, sample.PVToBat, sample.BatToLoad, sample.GridToLoad)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("insert %s telemetry sample", vendor), err)
	}
	return nil
}

// Latest returns the most recent sample for a vendor.
func (s *TelemetryStore) Latest(ctx context.Context, vendor config.Vendor) (TelemetrySample, error) {
	table, err := telemetryTable(vendor)
	if err != nil {
		return TelemetrySample{}, err
	}
	query := fmt.Sprintf(`
		SELECT "timestamp", plant_id, soc, battery_power, battery_voltage, battery_current,
			pv_power, load_power, grid_power, pv_to_load, pv_to_bat, bat_to_load, grid_to_load
		FROM %s ORDER BY "timestamp" DESC LIMIT 1`, table)
	return scanTelemetrySample(s.db.QueryRowContext(ctx, query))
}

// History returns samples for a vendor within [from, to], in
// ascending timestamp order (spec.md §6 telemetry.history RPC).
func (s *TelemetryStore) History(ctx context.Context, vendor config.Vendor, from, to time.Time) ([]TelemetrySample, error) {
	table, err := telemetryTable(vendor)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT "timestamp", plant_id, soc, battery_power, battery_voltage, battery_current,
			pv_power, load_power, grid_power, pv_to_load, pv_to_bat, bat_to_load, grid_to_load
		FROM %s WHERE "timestamp" BETWEEN $1 AND $2 ORDER BY "timestamp" ASC`, table)

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("query %s telemetry history", vendor), err)
	}
	defer rows.Close()

	var out []TelemetrySample
	for rows.Next() {
		sample, err := scanTelemetrySample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes samples older than cutoff, returning the
// number of rows deleted. Backs the retention-purge background job
// (supplemented beyond spec.md §6, which does not bound telemetry
// history retention).
func (s *TelemetryStore) DeleteOlderThan(ctx context.Context, vendor config.Vendor, cutoff time.Time) (int64, error) {
	table, err := telemetryTable(vendor)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE "timestamp" < $1`, table)
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("delete old %s telemetry", vendor), err)
	}
	return res.RowsAffected()
}

func scanTelemetrySample(row scanner) (TelemetrySample, error) {
	var t TelemetrySample
	err := row.Scan(&t.Timestamp, &t.PlantID, &t.SOC, &t.BatteryPower, &t.BatteryVoltage,
		&t.BatteryCurrent, &t.PVPower, &t.LoadPower, &t.GridPower, &t.PVToLoad, &t.PVToBat,
		&t.BatToLoad, &t.GridToLoad)
	if err == sql.ErrNoRows {
		return TelemetrySample{}, apperr.New(apperr.KindNotFound, "no telemetry samples")
	}
	if err != nil {
		return TelemetrySample{}, apperr.Wrap(apperr.KindInternal, "scan telemetry sample", err)
	}
	return t, nil
}
