package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/gin-gonic/gin"
)

// telemetrySampleView is one sample in a telemetry.latest/history
// response (spec.md §6, §3 TelemetrySample).
type telemetrySampleView struct {
	Timestamp    string  `json:"timestamp"`
	PlantID      string  `json:"plant_id,omitempty"`
	SOC          float64 `json:"soc,omitempty"`
	BatteryPower float64 `json:"batt_power,omitempty"`
	BatteryVolts float64 `json:"batt_voltage,omitempty"`
	BatteryAmps  float64 `json:"batt_current,omitempty"`
	PVPower      float64 `json:"pv_power,omitempty"`
	LoadPower    float64 `json:"load_power,omitempty"`
	GridPower    float64 `json:"grid_power,omitempty"`
	PVToLoad     bool    `json:"pv_to_load"`
	PVToBat      bool    `json:"pv_to_bat"`
	BatToLoad    bool    `json:"bat_to_load"`
	GridToLoad   bool    `json:"grid_to_load"`
}

func viewSample(sm store.TelemetrySample) telemetrySampleView {
	return telemetrySampleView{
		Timestamp:    sm.Timestamp.Format(timeFormat),
		PlantID:      sm.PlantID.String,
		SOC:          sm.SOC.Float64,
		BatteryPower: sm.BatteryPower.Float64,
		BatteryVolts: sm.BatteryVoltage.Float64,
		BatteryAmps:  sm.BatteryCurrent.Float64,
		PVPower:      sm.PVPower.Float64,
		LoadPower:    sm.LoadPower.Float64,
		GridPower:    sm.GridPower.Float64,
		PVToLoad:     sm.PVToLoad,
		PVToBat:      sm.PVToBat,
		BatToLoad:    sm.BatToLoad,
		GridToLoad:   sm.GridToLoad,
	}
}

func parseVendor(raw string) (config.Vendor, error) {
	switch config.Vendor(raw) {
	case config.VendorSolArk:
		return config.VendorSolArk, nil
	case config.VendorVictron:
		return config.VendorVictron, nil
	default:
		return "", apperr.New(apperr.KindInvalidInput, "unknown vendor: "+raw)
	}
}

// telemetryLatestHandler handles GET /api/v1/telemetry/:vendor/latest.
func (s *Server) telemetryLatestHandler(c *gin.Context) {
	vendor, err := parseVendor(c.Param("vendor"))
	if err != nil {
		writeError(c, err)
		return
	}

	sample, err := s.telemetry.Latest(c.Request.Context(), vendor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || apperr.Is(err, apperr.KindNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSample(sample))
}

// telemetryHistoryHandler handles GET /api/v1/telemetry/:vendor/history?hours=&limit=.
func (s *Server) telemetryHistoryHandler(c *gin.Context) {
	vendor, err := parseVendor(c.Param("vendor"))
	if err != nil {
		writeError(c, err)
		return
	}

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, apperr.New(apperr.KindInvalidInput, "hours must be a positive integer"))
			return
		}
		hours = n
	}
	limit := 500
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, apperr.New(apperr.KindInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	samples, err := s.telemetry.History(c.Request.Context(), vendor, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}

	out := make([]telemetrySampleView, 0, len(samples))
	for _, sm := range samples {
		out = append(out, viewSample(sm))
	}
	c.JSON(http.StatusOK, out)
}
