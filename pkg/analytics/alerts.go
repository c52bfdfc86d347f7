package analytics

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Alert types.
const (
	AlertLongDwell = "long_dwell"
	AlertHighSpeed = "high_speed"
)

// Alert severities.
const (
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// Alert thresholds.
const (
	longDwellSeconds = 60.0 // dwell beyond this raises long_dwell
	highSpeedKmh     = 80.0 // mean speed beyond this raises high_speed
)

// Alert is one threshold violation by a finalized vehicle.
type Alert struct {
	Type      string    `json:"type"`
	TrackID   int64     `json:"trackID"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
}

// checkAlerts evaluates the alert rules against a finalized vehicle. The two
// rules are independent: a vehicle may raise zero, one or both alerts, and
// each rule raises at most one alert per vehicle.
func (e *Engine) checkAlerts(v *VehicleMetrics, dwell float64) {
	if dwell > longDwellSeconds {
		e.addAlert(Alert{
			Type:      AlertLongDwell,
			TrackID:   v.TrackID,
			Message:   fmt.Sprintf("Veículo #%v permaneceu %.1fs na área", v.TrackID, dwell),
			Timestamp: e.timeNow(),
			Severity:  SeverityWarning,
		})
	}

	if len(v.speedEstimates) > 0 {
		avgSpeed := stat.Mean(v.speedEstimates, nil)
		if avgSpeed > highSpeedKmh {
			e.addAlert(Alert{
				Type:      AlertHighSpeed,
				TrackID:   v.TrackID,
				Message:   fmt.Sprintf("Veículo #%v com velocidade média de %.1f km/h", v.TrackID, avgSpeed),
				Timestamp: e.timeNow(),
				Severity:  SeverityDanger,
			})
		}
	}
}

func (e *Engine) addAlert(a Alert) {
	e.alerts.Add(a)
	e.alertsTotal++
}

// AlertCount returns the number of alerts raised since construction or the
// last reset, including any that have fallen out of the recent-alerts ring.
func (e *Engine) AlertCount() int {
	return e.alertsTotal
}

// RecentAlerts returns up to n of the most recent alerts, oldest first.
func (e *Engine) RecentAlerts(n int) []Alert {
	total := e.alerts.Len()
	if n > total {
		n = total
	}
	out := make([]Alert, 0, n)
	for i := total - n; i < total; i++ {
		out = append(out, e.alerts.Peek(i))
	}
	return out
}
