package analytics

import (
	"math"

	"github.com/vigiacam/vigia/pkg/colorclass"
	"gonum.org/v1/gonum/stat"
)

// Density is the ordinal traffic density class.
type Density string

const (
	DensityBaixo         Density = "BAIXO"
	DensityModerado      Density = "MODERADO"
	DensityAlto          Density = "ALTO"
	DensityCongestionado Density = "CONGESTIONADO"
)

var densityColors = map[Density]string{
	DensityBaixo:         "#27ae60",
	DensityModerado:      "#f39c12",
	DensityAlto:          "#e67e22",
	DensityCongestionado: "#e74c3c",
}

// Color returns the display hex color associated with a density class.
func (d Density) Color() string {
	if c, ok := densityColors[d]; ok {
		return c
	}
	return "#95a5a6"
}

// VehicleStats is the per-vehicle projection exposed to the UI.
type VehicleStats struct {
	TrackID          int64            `json:"trackID"`
	Color            colorclass.Color `json:"color"`
	Type             string           `json:"type"`
	AvgSpeedKmh      float64          `json:"avgSpeedKmh"`
	MaxSpeedKmh      float64          `json:"maxSpeedKmh"`
	DwellTimeSeconds float64          `json:"dwellTimeSeconds"`
	Direction        string           `json:"direction"`
	PositionsCount   int              `json:"positionsCount"`
}

// Summary is the aggregate analytics snapshot.
type Summary struct {
	TotalVehicles     int     `json:"totalVehicles"`
	VehiclesInScene   int     `json:"vehiclesInScene"`
	AverageSpeedKmh   float64 `json:"averageSpeedKmh"`
	AverageDwellTimeS float64 `json:"averageDwellTimeS"`
	FlowRatePerMinute float64 `json:"flowRatePerMinute"`
	TrafficDensity    Density `json:"trafficDensity"`
	AlertsCount       int     `json:"alertsCount"`
	RecentAlerts      []Alert `json:"recentAlerts"`
}

// AverageSpeed returns the mean of the most recent speed samples (km/h),
// or 0 when no speed has been observed yet.
func (e *Engine) AverageSpeed() float64 {
	n := e.speedHistory.Len()
	if n == 0 {
		return 0
	}
	window := min(n, recentSpeedWindow)
	recent := make([]float64, 0, window)
	for i := n - window; i < n; i++ {
		recent = append(recent, e.speedHistory.Peek(i))
	}
	return stat.Mean(recent, nil)
}

// AverageDwellTime returns the mean dwell time (seconds) over all counted
// vehicles, or 0 when none have exited yet.
func (e *Engine) AverageDwellTime() float64 {
	if len(e.dwellTimes) == 0 {
		return 0
	}
	return stat.Mean(e.dwellTimes, nil)
}

// CurrentFlowRate returns vehicles per minute, measured against the wall
// clock since construction or the last reset. This is deliberately distinct
// from the frame-timestamp flow computed by the pipeline: the two must not be
// conflated. The rate reads 0 until at least two vehicles have exited.
func (e *Engine) CurrentFlowRate() float64 {
	if len(e.dwellTimes) < 2 {
		return 0
	}
	elapsed := e.timeNow().Sub(e.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(e.totalVehicles) / elapsed * 60
}

// TrafficDensity classifies the number of vehicles currently in the scene.
func (e *Engine) TrafficDensity() Density {
	switch {
	case e.vehiclesInScene <= 2:
		return DensityBaixo
	case e.vehiclesInScene <= 5:
		return DensityModerado
	case e.vehiclesInScene <= 10:
		return DensityAlto
	default:
		return DensityCongestionado
	}
}

// TotalVehicles returns the number of distinct vehicles seen.
func (e *Engine) TotalVehicles() int {
	return e.totalVehicles
}

// VehiclesInScene returns the number of vehicles currently being observed.
func (e *Engine) VehiclesInScene() int {
	return e.vehiclesInScene
}

// VehicleStats returns the per-vehicle projection, or ok=false for an
// unknown track.
func (e *Engine) VehicleStats(trackID int64) (VehicleStats, bool) {
	v := e.vehicles[trackID]
	if v == nil {
		return VehicleStats{}, false
	}
	avgSpeed := 0.0
	maxSpeed := 0.0
	if len(v.speedEstimates) > 0 {
		avgSpeed = stat.Mean(v.speedEstimates, nil)
		for _, s := range v.speedEstimates {
			maxSpeed = max(maxSpeed, s)
		}
	}
	dwell := 0.0
	if v.ExitTime != 0 {
		dwell = v.ExitTime - v.EntryTime
	}
	return VehicleStats{
		TrackID:          trackID,
		Color:            v.Color,
		Type:             v.VehicleType,
		AvgSpeedKmh:      round1(avgSpeed),
		MaxSpeedKmh:      round1(maxSpeed),
		DwellTimeSeconds: round1(dwell),
		Direction:        v.Direction,
		PositionsCount:   v.positionsTotal,
	}, true
}

// Summary returns the aggregate snapshot consumed by the UI and exporters.
func (e *Engine) Summary() Summary {
	return Summary{
		TotalVehicles:     e.totalVehicles,
		VehiclesInScene:   e.vehiclesInScene,
		AverageSpeedKmh:   round1(e.AverageSpeed()),
		AverageDwellTimeS: round1(e.AverageDwellTime()),
		FlowRatePerMinute: round1(e.CurrentFlowRate()),
		TrafficDensity:    e.TrafficDensity(),
		AlertsCount:       e.alertsTotal,
		RecentAlerts:      e.RecentAlerts(5),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
