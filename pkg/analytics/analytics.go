// Package analytics maintains per-vehicle kinematics (speed, dwell time),
// raises threshold alerts, and exposes rolling aggregate traffic metrics.
// It consumes the same per-frame stream as the crossing counter, but keeps
// its own per-vehicle records.
package analytics

import (
	"math"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/gen"
	"github.com/vigiacam/vigia/pkg/nn"
)

const (
	// DefaultPixelsPerMeter is the default scale estimate used to convert
	// pixel displacement into meters.
	DefaultPixelsPerMeter = 20.0

	// Instantaneous speeds are clamped to this ceiling (km/h). Tracker
	// glitches can teleport a box across the frame in one step; we'd rather
	// saturate than record a nonsense speed.
	maxSpeedKmh = 200.0

	// AverageSpeed looks at this many of the most recent global samples.
	recentSpeedWindow = 50

	// Ring capacities. Powers of two, per the ring buffer's requirement.
	// The per-vehicle position ring holds ~34s of 30fps samples; entry
	// time/position live outside the ring, so dwell time and speed are
	// unaffected by eviction.
	speedHistoryCap = 64
	positionCap     = 1024
	alertCap        = 1024
)

// Position is one observed center position with its video timestamp.
type Position struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp float64 `json:"timestamp"`
}

// VehicleMetrics is the engine's record of one tracked vehicle. It is created
// on first sighting and finalized exactly once when the vehicle is counted
// out of the scene.
type VehicleMetrics struct {
	TrackID       int64
	EntryTime     float64
	ExitTime      float64
	EntryPosition Position
	ExitPosition  Position
	Color         colorclass.Color
	VehicleType   string
	Direction     string
	Counted       bool

	positions      ringbuffer.RingP[Position]
	positionsTotal int
	speedEstimates []float64
}

// Engine is the traffic analytics engine.
// Not safe for concurrent use; the frame pipeline is its single writer, and
// readers receive value snapshots.
type Engine struct {
	log            logs.Log
	fps            float64
	pixelsPerMeter float64

	vehicles        map[int64]*VehicleMetrics
	totalVehicles   int
	vehiclesInScene int

	speedHistory ringbuffer.RingP[float64]
	dwellTimes   []float64

	alerts      ringbuffer.RingP[Alert]
	alertsTotal int

	startTime time.Time
	timeNow   func() time.Time // wall clock, swappable in tests
}

// NewEngine creates an analytics engine. fps is informational (it defines the
// caller's timestamp granularity); pixelsPerMeter is the scale used for speed
// conversion, <= 0 selects the default.
func NewEngine(log logs.Log, fps float64, pixelsPerMeter float64) *Engine {
	if pixelsPerMeter <= 0 {
		pixelsPerMeter = DefaultPixelsPerMeter
	}
	e := &Engine{
		log:            log,
		fps:            fps,
		pixelsPerMeter: pixelsPerMeter,
		timeNow:        time.Now,
	}
	e.clear()
	return e
}

// SetPixelsPerMeter changes the speed conversion scale. Values <= 0 are ignored.
func (e *Engine) SetPixelsPerMeter(ppm float64) {
	if ppm > 0 {
		e.pixelsPerMeter = ppm
	}
}

func (e *Engine) clear() {
	e.vehicles = map[int64]*VehicleMetrics{}
	e.totalVehicles = 0
	e.vehiclesInScene = 0
	e.speedHistory = ringbuffer.NewRingP[float64](speedHistoryCap)
	e.dwellTimes = nil
	e.alerts = ringbuffer.NewRingP[Alert](alertCap)
	e.alertsTotal = 0
	e.startTime = e.timeNow()
}

// UpdateVehicle records one frame's observation of a tracked vehicle.
// timestamp is video time in seconds (frame index / fps), supplied by the
// caller. color and vehicleType overwrite the stored values when non-empty.
func (e *Engine) UpdateVehicle(trackID int64, box nn.Rect, timestamp float64, color colorclass.Color, vehicleType string) {
	centerX, centerY := box.CenterF()

	v := e.vehicles[trackID]
	if v == nil {
		v = &VehicleMetrics{
			TrackID:       trackID,
			EntryTime:     timestamp,
			EntryPosition: Position{X: centerX, Y: centerY, Timestamp: timestamp},
			Color:         colorclass.Indefinido,
			VehicleType:   "car",
			positions:     ringbuffer.NewRingP[Position](positionCap),
		}
		e.vehicles[trackID] = v
		e.totalVehicles++
		e.vehiclesInScene++
	}

	v.positions.Add(Position{X: centerX, Y: centerY, Timestamp: timestamp})
	v.positionsTotal++

	if color != "" {
		v.Color = color
	}
	if vehicleType != "" {
		v.VehicleType = vehicleType
	}

	if n := v.positions.Len(); n >= 2 {
		speed := e.speedBetween(v.positions.Peek(n-2), v.positions.Peek(n-1))
		if speed > 0 {
			v.speedEstimates = append(v.speedEstimates, speed)
			e.speedHistory.Add(speed)
		}
	}
}

// VehicleExited finalizes a vehicle after the crossing counter has counted
// it. It must be called exactly once per track, and only after a counting
// event. Calling it for an unknown or already-finalized track is a caller
// protocol bug: we log and ignore it.
func (e *Engine) VehicleExited(trackID int64, timestamp float64, direction string) {
	v := e.vehicles[trackID]
	if v == nil {
		e.log.Errorf("Analytics: VehicleExited for unknown track %v", trackID)
		return
	}
	if v.Counted {
		e.log.Errorf("Analytics: VehicleExited called twice for track %v", trackID)
		return
	}

	v.ExitTime = timestamp
	v.Direction = direction
	v.Counted = true
	if n := v.positions.Len(); n > 0 {
		v.ExitPosition = v.positions.Peek(n - 1)
	}

	dwell := timestamp - v.EntryTime
	e.dwellTimes = append(e.dwellTimes, dwell)
	e.vehiclesInScene = max(0, e.vehiclesInScene-1)

	e.checkAlerts(v, dwell)
}

// speedBetween converts the displacement between two consecutive samples to
// km/h, clamped to [0, maxSpeedKmh]. A non-positive time delta yields 0.
func (e *Engine) speedBetween(a, b Position) float64 {
	dt := b.Timestamp - a.Timestamp
	if dt <= 0 {
		return 0
	}
	distPixels := math.Hypot(b.X-a.X, b.Y-a.Y)
	distMeters := distPixels / e.pixelsPerMeter
	kmh := distMeters / dt * 3.6
	return gen.Clamp(kmh, 0, maxSpeedKmh)
}

// Reset clears all metrics and restarts the wall-clock reference.
func (e *Engine) Reset() {
	e.clear()
}
