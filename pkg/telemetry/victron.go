package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// VictronClient polls the Victron VRM API for the latest system
// overview. Shares SolArkClient's request shape; the two vendors expose
// different JSON bodies so each gets its own decode step.
type VictronClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	installID  string
}

// NewVictronClient builds a Victron poller client.
func NewVictronClient(baseURL, apiKey, installID string) *VictronClient {
	return &VictronClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		installID:  installID,
	}
}

type victronResponse struct {
	Records struct {
		BatterySOC     float64 `json:"bs"`
		BatteryPower   float64 `json:"bp"`
		BatteryVoltage float64 `json:"bv"`
		BatteryCurrent float64 `json:"bc"`
		SolarPower     float64 `json:"sp"`
		ConsumedPower  float64 `json:"cp"`
		GridPower      float64 `json:"gp"`
	} `json:"records"`
}

// FetchLatest implements VendorClient.
func (c *VictronClient) FetchLatest(ctx context.Context) (Sample, error) {
	url := fmt.Sprintf("%s/v2/installations/%s/system-overview", c.baseURL, c.installID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("build victron request: %w", err)
	}
	req.Header.Set("X-Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("fetch victron telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Sample{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("victron returned HTTP %d", resp.StatusCode)
	}

	var body victronResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Sample{}, fmt.Errorf("decode victron response: %w", err)
	}
	r := body.Records

	return Sample{
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		PlantID:        c.installID,
		SOC:            &r.BatterySOC,
		BatteryPower:   &r.BatteryPower,
		BatteryVoltage: &r.BatteryVoltage,
		BatteryCurrent: &r.BatteryCurrent,
		PVPower:        &r.SolarPower,
		LoadPower:      &r.ConsumedPower,
		GridPower:      &r.GridPower,
		PVToLoad:       r.SolarPower > 0 && r.ConsumedPower > 0,
		PVToBat:        r.SolarPower > 0 && r.BatteryPower > 0,
		BatToLoad:      r.BatteryPower < 0,
		GridToLoad:     r.GridPower > 0,
	}, nil
}
