package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/config"
)

// vendorArg extracts and validates the "vendor" input field, defaulting
// to SolArk when omitted (the site's primary inverter).
func vendorArg(input map[string]any) (config.Vendor, error) {
	raw, ok := input["vendor"].(string)
	if !ok || raw == "" {
		return config.VendorSolArk, nil
	}
	v := config.Vendor(raw)
	if v != config.VendorSolArk && v != config.VendorVictron {
		return "", apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unknown vendor %q", raw))
	}
	return v, nil
}

func intArg(input map[string]any, key string, def int) int {
	if f, ok := input[key].(float64); ok && f > 0 {
		return int(f)
	}
	return def
}

// statusTools returns the Status Specialist's tool registry (spec.md
// §4.3: latest_sample, history(hours, limit), stats(hours), search_kb).
func statusTools() []Tool {
	return []Tool{
		{
			Name:        "latest_sample",
			Description: "Fetch the most recent telemetry reading for a vendor (solark or victron).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
				},
			},
			Handler: latestSampleHandler,
		},
		{
			Name:        "history",
			Description: "Fetch telemetry samples for a vendor over the last N hours and report how many there are, counting at most the newest limit samples.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
					"hours":  map[string]any{"type": "number"},
					"limit":  map[string]any{"type": "number"},
				},
			},
			Handler: historyHandler,
		},
		{
			Name:        "stats",
			Description: "Compute summary statistics (min/max/avg SOC, battery power) for a vendor over the last N hours.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
					"hours":  map[string]any{"type": "number"},
				},
			},
			Handler: statsHandler,
		},
		searchKBTool(),
	}
}

func latestSampleHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.Telemetry == nil {
		return "", apperr.New(apperr.KindInternal, "telemetry store unavailable")
	}
	vendor, err := vendorArg(input)
	if err != nil {
		return "", err
	}
	sample, err := ec.Telemetry.Latest(ctx, vendor)
	if err != nil {
		return "", err
	}
	age := time.Since(sample.Timestamp).Round(time.Second)
	return fmt.Sprintf("%s latest sample at %s (%s ago): SOC=%.1f%% battery_power=%.0fW pv_power=%.0fW load_power=%.0fW grid_power=%.0fW",
		vendor, sample.Timestamp.Format(time.RFC3339), age,
		sample.SOC.Float64, sample.BatteryPower.Float64, sample.PVPower.Float64, sample.LoadPower.Float64, sample.GridPower.Float64), nil
}

func historyHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.Telemetry == nil {
		return "", apperr.New(apperr.KindInternal, "telemetry store unavailable")
	}
	vendor, err := vendorArg(input)
	if err != nil {
		return "", err
	}
	hours := intArg(input, "hours", 24)
	limit := intArg(input, "limit", 50)

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)
	samples, err := ec.Telemetry.History(ctx, vendor, from, to)
	if err != nil {
		return "", err
	}
	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return fmt.Sprintf("%s: %d samples between %s and %s", vendor, len(samples), from.Format(time.RFC3339), to.Format(time.RFC3339)), nil
}

func statsHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.Telemetry == nil {
		return "", apperr.New(apperr.KindInternal, "telemetry store unavailable")
	}
	vendor, err := vendorArg(input)
	if err != nil {
		return "", err
	}
	hours := intArg(input, "hours", 24)
	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	samples, err := ec.Telemetry.History(ctx, vendor, from, to)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return fmt.Sprintf("%s: no samples in the last %dh", vendor, hours), nil
	}

	minSOC, maxSOC, sumSOC := samples[0].SOC.Float64, samples[0].SOC.Float64, 0.0
	sumPower := 0.0
	for _, s := range samples {
		if s.SOC.Float64 < minSOC {
			minSOC = s.SOC.Float64
		}
		if s.SOC.Float64 > maxSOC {
			maxSOC = s.SOC.Float64
		}
		sumSOC += s.SOC.Float64
		sumPower += s.BatteryPower.Float64
	}
	n := float64(len(samples))
	return fmt.Sprintf("%s over last %dh (%d samples): SOC min=%.1f%% max=%.1f%% avg=%.1f%%, avg battery power=%.0fW",
		vendor, hours, len(samples), minSOC, maxSOC, sumSOC/n, sumPower/n), nil
}
