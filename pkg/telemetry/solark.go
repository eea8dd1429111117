package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SolArkClient polls the SolArk cloud API for the latest inverter/BMS
// reading. Grounded on the teacher's GitHubClient shape (bearer auth,
// bounded-timeout http.Client, context-aware requests).
type SolArkClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	plantID    string
}

// NewSolArkClient builds a SolArk poller client.
func NewSolArkClient(baseURL, apiKey, plantID string) *SolArkClient {
	return &SolArkClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		plantID:    plantID,
	}
}

type solArkResponse struct {
	Data struct {
		SOC            float64 `json:"soc"`
		BatteryPower   float64 `json:"battery_power"`
		BatteryVoltage float64 `json:"battery_voltage"`
		BatteryCurrent float64 `json:"battery_current"`
		PVPower        float64 `json:"pv_power"`
		LoadPower      float64 `json:"load_power"`
		GridPower      float64 `json:"grid_power"`
		PVToLoad       bool    `json:"pv_to_load"`
		PVToBat        bool    `json:"pv_to_bat"`
		BatToLoad      bool    `json:"bat_to_load"`
		GridToLoad     bool    `json:"grid_to_load"`
	} `json:"data"`
}

// FetchLatest implements VendorClient.
func (c *SolArkClient) FetchLatest(ctx context.Context) (Sample, error) {
	url := fmt.Sprintf("%s/api/v1/plant/%s/realtime", c.baseURL, c.plantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("build solark request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("fetch solark telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Sample{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("solark returned HTTP %d", resp.StatusCode)
	}

	var body solArkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Sample{}, fmt.Errorf("decode solark response: %w", err)
	}

	return Sample{
		Timestamp:      time.Now().UTC().Truncate(time.Second),
		PlantID:        c.plantID,
		SOC:            &body.Data.SOC,
		BatteryPower:   &body.Data.BatteryPower,
		BatteryVoltage: &body.Data.BatteryVoltage,
		BatteryCurrent: &body.Data.BatteryCurrent,
		PVPower:        &body.Data.PVPower,
		LoadPower:      &body.Data.LoadPower,
		GridPower:      &body.Data.GridPower,
		PVToLoad:       body.Data.PVToLoad,
		PVToBat:        body.Data.PVToBat,
		BatToLoad:      body.Data.BatToLoad,
		GridToLoad:     body.Data.GridToLoad,
	}, nil
}
