package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
)

// plannerTools returns the Planner Specialist's tool registry (spec.md
// §4.3: battery_plan, miner_plan, energy_plan(24h), latest_sample,
// search_kb). The three planning tools are deterministic heuristics
// over recent telemetry, not a call out to an external optimizer —
// this system has read-only telemetry and no inverter control surface
// (spec.md §1 Non-goals), so "planning" means recommending operator
// action from observed trends, not issuing commands.
func plannerTools() []Tool {
	return []Tool{
		{
			Name:        "battery_plan",
			Description: "Recommend a charge/discharge posture for the battery bank based on current SOC and recent trend.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
				},
			},
			Handler: batteryPlanHandler,
		},
		{
			Name:        "miner_plan",
			Description: "Recommend whether to run or curtail a co-located crypto miner load given current PV surplus and SOC.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
				},
			},
			Handler: minerPlanHandler,
		},
		{
			Name:        "energy_plan",
			Description: "Produce a 24-hour energy posture plan from the last 24 hours of telemetry trend.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vendor": map[string]any{"type": "string", "enum": []string{"solark", "victron"}},
				},
			},
			Handler: energyPlanHandler,
		},
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
			Name:        "get_runbook",
			Description: "Fetch a maintenance runbook. Give a url if you already have one, or a topic (e.g. \"battery\", \"inverter\", \"generator\") to look up the installation's matching procedure. Omit both to get the installation's generic default runbook.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":   map[string]any{"type": "string"},
					"topic": map[string]any{"type": "string"},
				},
			},
			Handler: getRunbookHandler,
		},
		searchKBTool(),
	}
}

const (
	socLowThreshold      = 30.0
	socHighThreshold     = 80.0
	minerCurtailSOC      = 50.0
	minerSurplusPVWatts  = 500.0
)

func batteryPlanHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
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

	soc := sample.SOC.Float64
	switch {
	case soc < socLowThreshold:
		return fmt.Sprintf("%s SOC is %.1f%%, below the %.0f%% floor: prioritize charging, defer discretionary loads until SOC recovers above %.0f%%.",
			vendor, soc, socLowThreshold, socHighThreshold), nil
	case soc > socHighThreshold:
		return fmt.Sprintf("%s SOC is %.1f%%, above %.0f%%: bank has headroom for discretionary loads without risking an overnight deficit.",
			vendor, soc, socHighThreshold), nil
	default:
		return fmt.Sprintf("%s SOC is %.1f%%, within the normal %0.f-%.0f%% band: maintain current posture.",
			vendor, soc, socLowThreshold, socHighThreshold), nil
	}
}

func minerPlanHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
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

	soc, pv, load := sample.SOC.Float64, sample.PVPower.Float64, sample.LoadPower.Float64
	surplus := pv - load
	if soc >= minerCurtailSOC && surplus > minerSurplusPVWatts {
		return fmt.Sprintf("%s SOC=%.1f%%, PV surplus=%.0fW: run the miner, surplus solar covers the load.", vendor, soc, surplus), nil
	}
	return fmt.Sprintf("%s SOC=%.1f%%, PV surplus=%.0fW: curtail the miner, insufficient surplus to run it without drawing the battery.", vendor, soc, surplus), nil
}

func energyPlanHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.Telemetry == nil {
		return "", apperr.New(apperr.KindInternal, "telemetry store unavailable")
	}
	vendor, err := vendorArg(input)
	if err != nil {
		return "", err
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	samples, err := ec.Telemetry.History(ctx, vendor, from, to)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return fmt.Sprintf("%s: no telemetry in the last 24h, cannot build an energy plan.", vendor), nil
	}

	var sumPV, sumLoad float64
	for _, s := range samples {
		sumPV += s.PVPower.Float64
		sumLoad += s.LoadPower.Float64
	}
	n := float64(len(samples))
	avgPV, avgLoad := sumPV/n, sumLoad/n
	latest := samples[len(samples)-1]

	posture := "balanced"
	if avgPV > avgLoad*1.2 {
		posture = "generation-surplus"
	} else if avgLoad > avgPV*1.2 {
		posture = "consumption-heavy"
	}

	return fmt.Sprintf("%s 24h plan: avg PV=%.0fW avg load=%.0fW (%s), current SOC=%.1f%%. Recommend: %s.",
		vendor, avgPV, avgLoad, posture, latest.SOC.Float64, energyRecommendation(posture)), nil
}

func getRunbookHandler(ctx context.Context, ec *ExecutionContext, input map[string]any) (string, error) {
	if ec.Runbook == nil {
		return "", apperr.New(apperr.KindInternal, "runbook service unavailable")
	}
	url, _ := input["url"].(string)
	topic, _ := input["topic"].(string)
	content, err := ec.Runbook.Resolve(ctx, url, topic)
	if err != nil {
		return "", apperr.WrapContext(apperr.KindUpstreamTransient, "fetch runbook", err)
	}
	if content == "" {
		return "no runbook available for this request.", nil
	}
	return content, nil
}

func energyRecommendation(posture string) string {
	switch posture {
	case "generation-surplus":
		return "shift discretionary loads (miner, water heating) into daylight hours"
	case "consumption-heavy":
		return "curtail discretionary loads overnight and prioritize battery charge during daylight"
	default:
		return "maintain current load schedule"
	}
}
