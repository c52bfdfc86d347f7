package analytics

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/nn"
)

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(logs.NewTestingLog(t), 30, DefaultPixelsPerMeter)
}

func boxAt(x, y int) nn.Rect {
	return nn.MakeRect(x-10, y-10, x+10, y+10)
}

func TestFirstSighting(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(100, 100), 0, colorclass.Azul, "car")
	require.Equal(t, 1, e.TotalVehicles())
	require.Equal(t, 1, e.VehiclesInScene())

	// Subsequent updates do not create a new vehicle.
	e.UpdateVehicle(1, boxAt(110, 100), 1.0/30, "", "")
	require.Equal(t, 1, e.TotalVehicles())

	stats, ok := e.VehicleStats(1)
	require.True(t, ok)
	require.Equal(t, colorclass.Azul, stats.Color)
	require.Equal(t, "car", stats.Type)
	require.Equal(t, 2, stats.PositionsCount)
}

func TestColorAndTypeOverwriteOnlyWhenProvided(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(100, 100), 0, "", "")
	stats, _ := e.VehicleStats(1)
	require.Equal(t, colorclass.Indefinido, stats.Color)
	require.Equal(t, "car", stats.Type)

	e.UpdateVehicle(1, boxAt(100, 100), 0.1, colorclass.Preto, "truck")
	e.UpdateVehicle(1, boxAt(100, 100), 0.2, "", "")
	stats, _ = e.VehicleStats(1)
	require.Equal(t, colorclass.Preto, stats.Color)
	require.Equal(t, "truck", stats.Type)
}

func TestSpeedClamp(t *testing.T) {
	e := newTestEngine(t)
	// 3000 px in 1 s at 20 px/m is 540 km/h; it must be reported as 200.
	e.UpdateVehicle(1, boxAt(0, 100), 0, "", "")
	e.UpdateVehicle(1, boxAt(3000, 100), 1, "", "")
	require.InDelta(t, 200.0, e.AverageSpeed(), 1e-9)

	stats, _ := e.VehicleStats(1)
	require.Equal(t, 200.0, stats.MaxSpeedKmh)
}

func TestZeroTimeDeltaYieldsNoSample(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(0, 100), 1, "", "")
	e.UpdateVehicle(1, boxAt(500, 100), 1, "", "")
	require.Equal(t, 0.0, e.AverageSpeed())

	// Negative delta likewise.
	e.UpdateVehicle(1, boxAt(900, 100), 0.5, "", "")
	require.Equal(t, 0.0, e.AverageSpeed())
}

func TestStationaryVehicleRecordsNoSpeed(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 10; i++ {
		e.UpdateVehicle(1, boxAt(100, 100), float64(i), "", "")
	}
	require.Equal(t, 0.0, e.AverageSpeed())
	stats, _ := e.VehicleStats(1)
	require.Equal(t, 0.0, stats.AvgSpeedKmh)
}

func TestSpeedComputation(t *testing.T) {
	e := newTestEngine(t)
	// 100 px in 1 s at 20 px/m = 5 m/s = 18 km/h.
	e.UpdateVehicle(1, boxAt(0, 100), 0, "", "")
	e.UpdateVehicle(1, boxAt(100, 100), 1, "", "")
	require.InDelta(t, 18.0, e.AverageSpeed(), 1e-9)
}

func TestLongDwellAlert(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(7, boxAt(100, 100), 0, "", "")
	e.VehicleExited(7, 61, "entrada")

	require.Equal(t, 1, e.AlertCount())
	alerts := e.RecentAlerts(10)
	require.Len(t, alerts, 1)
	require.Equal(t, AlertLongDwell, alerts[0].Type)
	require.Equal(t, SeverityWarning, alerts[0].Severity)
	require.Equal(t, int64(7), alerts[0].TrackID)
}

func TestShortDwellNoAlert(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(7, boxAt(100, 100), 0, "", "")
	// Exactly 60s is not "more than a minute".
	e.VehicleExited(7, 60, "entrada")
	require.Equal(t, 0, e.AlertCount())
}

func TestHighSpeedAlert(t *testing.T) {
	e := newTestEngine(t)
	// 500 px/s at 20 px/m = 90 km/h, above the 80 km/h threshold.
	for i := 0; i < 5; i++ {
		e.UpdateVehicle(9, boxAt(i*500, 100), float64(i), "", "")
	}
	e.VehicleExited(9, 5, "saida")

	alerts := e.RecentAlerts(10)
	require.Len(t, alerts, 1)
	require.Equal(t, AlertHighSpeed, alerts[0].Type)
	require.Equal(t, SeverityDanger, alerts[0].Severity)
}

func TestBothAlertsIndependent(t *testing.T) {
	e := newTestEngine(t)
	// Slow (4.5 km/h) but long dwell: only the dwell rule fires.
	for i := 0; i < 5; i++ {
		e.UpdateVehicle(3, boxAt(i*500, 100), float64(i)*20, "", "")
	}
	e.VehicleExited(3, 100, "entrada")
	require.Equal(t, 1, e.AlertCount())

	e.Reset()
	for i := 0; i < 70; i++ {
		e.UpdateVehicle(4, boxAt(i*500, 100), float64(i), "", "")
	}
	// Fast (90 km/h) and long dwell: both rules fire.
	e.VehicleExited(4, 70, "entrada")
	require.Equal(t, 2, e.AlertCount())
}

func TestVehicleExitedContractViolations(t *testing.T) {
	e := newTestEngine(t)
	// Unknown track: logged and ignored.
	e.VehicleExited(42, 10, "entrada")
	require.Equal(t, 0.0, e.AverageDwellTime())

	e.UpdateVehicle(1, boxAt(100, 100), 0, "", "")
	e.VehicleExited(1, 10, "entrada")
	// Second finalization is ignored.
	e.VehicleExited(1, 99, "saida")
	require.InDelta(t, 10.0, e.AverageDwellTime(), 1e-9)

	stats, _ := e.VehicleStats(1)
	require.Equal(t, "entrada", stats.Direction)
	require.Equal(t, 10.0, stats.DwellTimeSeconds)
}

func TestVehiclesInSceneFloor(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(100, 100), 0, "", "")
	e.VehicleExited(1, 1, "entrada")
	require.Equal(t, 0, e.VehiclesInScene())
}

func TestAverageSpeedWindow(t *testing.T) {
	e := newTestEngine(t)
	// 10 steps at 36 km/h, then 50 at 18 km/h. The window holds the most
	// recent 50 samples, so the early fast samples must not appear.
	x := 0
	ts := 0.0
	for i := 0; i < 10; i++ {
		e.UpdateVehicle(1, boxAt(x, 100), ts, "", "")
		x += 200
		ts++
	}
	for i := 0; i < 51; i++ {
		e.UpdateVehicle(1, boxAt(x, 100), ts, "", "")
		x += 100
		ts++
	}
	require.InDelta(t, 18.0, e.AverageSpeed(), 1e-9)
}

func TestFlowRate(t *testing.T) {
	e := newTestEngine(t)
	t0 := time.Now()
	e.startTime = t0
	e.timeNow = func() time.Time { return t0.Add(60 * time.Second) }

	e.UpdateVehicle(1, boxAt(100, 100), 0, "", "")
	e.UpdateVehicle(2, boxAt(200, 100), 0, "", "")
	e.VehicleExited(1, 5, "entrada")
	// Fewer than two dwell records: the rate is gated to 0.
	require.Equal(t, 0.0, e.CurrentFlowRate())

	e.VehicleExited(2, 6, "saida")
	// 2 vehicles over 60 s of wall time = 2 per minute.
	require.InDelta(t, 2.0, e.CurrentFlowRate(), 1e-9)
}

func TestTrafficDensity(t *testing.T) {
	e := newTestEngine(t)
	require.Equal(t, DensityBaixo, e.TrafficDensity())

	for i := int64(1); i <= 3; i++ {
		e.UpdateVehicle(i, boxAt(100, 100), 0, "", "")
	}
	require.Equal(t, DensityModerado, e.TrafficDensity())

	for i := int64(4); i <= 6; i++ {
		e.UpdateVehicle(i, boxAt(100, 100), 0, "", "")
	}
	require.Equal(t, DensityAlto, e.TrafficDensity())

	for i := int64(7); i <= 11; i++ {
		e.UpdateVehicle(i, boxAt(100, 100), 0, "", "")
	}
	require.Equal(t, DensityCongestionado, e.TrafficDensity())

	require.Equal(t, "#e74c3c", DensityCongestionado.Color())
	require.Equal(t, "#95a5a6", Density("?").Color())
}

func TestVehicleStatsNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, ok := e.VehicleStats(999)
	require.False(t, ok)
}

func TestSummary(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(0, 100), 0, colorclass.Azul, "car")
	e.UpdateVehicle(1, boxAt(100, 100), 1, "", "")
	e.UpdateVehicle(2, boxAt(100, 200), 1, "", "")
	e.VehicleExited(1, 61, "entrada")

	s := e.Summary()
	require.Equal(t, 2, s.TotalVehicles)
	require.Equal(t, 1, s.VehiclesInScene)
	require.Equal(t, 18.0, s.AverageSpeedKmh)
	require.Equal(t, 61.0, s.AverageDwellTimeS)
	require.Equal(t, DensityBaixo, s.TrafficDensity)
	require.Equal(t, 1, s.AlertsCount)
	require.Len(t, s.RecentAlerts, 1)
}

func TestReset(t *testing.T) {
	e := newTestEngine(t)
	e.UpdateVehicle(1, boxAt(100, 100), 0, "", "")
	e.VehicleExited(1, 61, "entrada")
	require.Equal(t, 1, e.TotalVehicles())
	require.Equal(t, 1, e.AlertCount())

	e.Reset()
	require.Equal(t, 0, e.TotalVehicles())
	require.Equal(t, 0, e.VehiclesInScene())
	require.Equal(t, 0, e.AlertCount())
	require.Equal(t, 0.0, e.AverageSpeed())
	require.Equal(t, 0.0, e.AverageDwellTime())
	_, ok := e.VehicleStats(1)
	require.False(t, ok)
}
