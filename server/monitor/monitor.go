// Package monitor runs the frame analysis pipeline: color classification,
// line crossing counting and traffic analytics, fed from a FrameSource on a
// dedicated goroutine.
package monitor

import (
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/vigiacam/vigia/pkg/analytics"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/counter"
	"github.com/vigiacam/vigia/pkg/nn"
	"github.com/vigiacam/vigia/pkg/overlay"
	"github.com/vigiacam/vigia/pkg/tracker"
)

// Crossings older than this fall out of the frame-time flow window.
const flowWindowSeconds = 60.0

// Options configures a Monitor.
type Options struct {
	FrameWidth     int
	FrameHeight    int
	FPS            float64
	LinePosition   float64          // counting line, fraction of frame height
	PixelsPerMeter float64          // 0 uses the analytics default
	ForgetAfter    float64          // track expiry in seconds, 0 uses the tracker default
	WatchColor     colorclass.Color // raise an alert when a vehicle of this color is counted, "" disables

	// StartPaused creates the monitor with one Pause() outstanding, so the
	// caller can attach watchers and a recorder before the first frame is
	// consumed. Call Unpause() to begin.
	StartPaused bool
}

// Recorder receives counted crossings and raised alerts for persistence.
// Failures are logged and do not stall the pipeline.
type Recorder interface {
	RecordCrossing(rec counter.VehicleRecord) error
	RecordAlert(alert analytics.Alert) error
}

// Monitor owns the analysis pipeline state. All of it is guarded by 'lock',
// which the pipeline goroutine holds while processing a frame, and API
// accessors hold while reading.
type Monitor struct {
	Log logs.Log

	source FrameSource

	lock       sync.Mutex
	classifier *colorclass.Classifier
	tracker    *tracker.Tracker
	counter    *counter.Counter
	engine     *analytics.Engine
	watchColor colorclass.Color
	recorder   Recorder

	crossingTimes []float64 // frame timestamps of recent crossings
	frameCount    int64

	lastSnapshot *Snapshot
	lastImage    nn.ImageCrop
	lastBoxes    []nn.TrackedBox
	lastColors   map[int64]colorclass.Color

	mustStop    atomic.Bool // True if Close() has been called
	isPaused    atomic.Int32
	loopStopped chan bool

	watchersLock  sync.RWMutex
	watchers      []chan *Snapshot
	alertWatchers []chan *AlertEvent
}

// NewMonitor creates a monitor and starts its pipeline goroutine.
func NewMonitor(logger logs.Log, source FrameSource, opts Options) (*Monitor, error) {
	cnt, err := counter.NewCounter(opts.FrameHeight, opts.LinePosition)
	if err != nil {
		return nil, err
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("monitor: fps must be positive, got %v", opts.FPS)
	}
	tr := tracker.NewTracker(opts.FrameWidth, opts.FrameHeight)
	tr.SetForgetAfter(opts.ForgetAfter)
	m := &Monitor{
		Log:        logger,
		source:     source,
		classifier: colorclass.NewClassifier(),
		tracker:    tr,
		counter:    cnt,
		engine:     analytics.NewEngine(logger, opts.FPS, opts.PixelsPerMeter),
		watchColor: opts.WatchColor,
	}
	if opts.StartPaused {
		m.isPaused.Store(1)
	}
	m.start()
	return m, nil
}

// Close stops the pipeline goroutine and waits for it.
func (m *Monitor) Close() {
	m.Log.Infof("Monitor shutting down")
	m.mustStop.Store(true)
	<-m.loopStopped
	m.Log.Infof("Monitor is closed")
}

// WaitFinished blocks until the pipeline goroutine has stopped, either
// because the frame source ended or because Close() was called.
func (m *Monitor) WaitFinished() {
	<-m.loopStopped
}

// Pause suspends frame processing.
// Pause/Unpause is a counter, so for every call to Pause(), you must make an
// equivalent call to Unpause().
func (m *Monitor) Pause() {
	m.isPaused.Add(1)
}

// Unpause reverses one call to Pause().
func (m *Monitor) Unpause() {
	nv := m.isPaused.Add(-1)
	if nv < 0 {
		m.Log.Errorf("Monitor isPaused is negative. This is a bug")
	}
}

// IsPaused returns true while one or more Pause() calls are outstanding.
func (m *Monitor) IsPaused() bool {
	return m.isPaused.Load() > 0
}

func (m *Monitor) start() {
	m.mustStop.Store(false)
	m.loopStopped = make(chan bool)
	go m.loop()
}

// Loop runs until Close(), or until the frame source ends.
func (m *Monitor) loop() {
	lastErrAt := time.Time{}

	for !m.mustStop.Load() {
		if m.isPaused.Load() > 0 {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		frame, err := m.source.NextFrame()
		if err != nil {
			if err == io.EOF {
				m.Log.Infof("Frame source ended after %v frames", m.FrameCount())
				break
			}
			if time.Now().Sub(lastErrAt) > 15*time.Second {
				m.Log.Errorf("Error reading frame: %v", err)
				lastErrAt = time.Now()
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		snapshot := m.processFrame(frame)
		m.sendToWatchers(snapshot)
	}
	close(m.loopStopped)
}

// processFrame advances all pipeline state by one frame.
func (m *Monitor) processFrame(frame *Frame) *Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.frameCount++
	ts := frame.Timestamp

	boxes := frame.Boxes
	var expired []int64
	if boxes == nil {
		boxes, expired = m.tracker.Track(frame.Detections, ts)
	}

	colors := map[int64]colorclass.Color{}
	if frame.Image.Pixels != nil {
		for _, b := range boxes {
			if b.TrackID < 0 {
				// Boxes that the tracker hasn't bound to an identity yet
				continue
			}
			colors[b.TrackID] = m.classifier.ClassifyWithSmoothing(b.TrackID, frame.Image, b.Box)
		}
	}

	crossings := m.counter.Update(boxes, colors, ts)

	for _, b := range boxes {
		if b.TrackID < 0 {
			continue
		}
		m.engine.UpdateVehicle(b.TrackID, b.Box, ts, colors[b.TrackID], b.ClassName)
	}

	alertsBefore := m.engine.AlertCount()
	var alertEvents []*AlertEvent

	for _, ev := range crossings {
		m.engine.VehicleExited(ev.TrackID, ts, string(ev.Direction))
		m.crossingTimes = append(m.crossingTimes, ev.Timestamp)
		m.Log.Infof("Veículo #%v (%v, %v) cruzou a linha: %v", ev.TrackID, ev.Type, colorclass.DisplayName(ev.Color), ev.Direction)

		if m.watchColor != "" && ev.Color == m.watchColor {
			alertEvents = append(alertEvents, &AlertEvent{
				Kind:      AlertColorMatch,
				TrackID:   ev.TrackID,
				Message:   fmt.Sprintf("Veículo da cor alvo (%v) detectado: #%v", colorclass.DisplayName(ev.Color), ev.TrackID),
				Severity:  "info",
				Timestamp: time.Now(),
			})
		}
		if m.recorder != nil {
			if err := m.recorder.RecordCrossing(counter.VehicleRecord(ev)); err != nil {
				m.Log.Errorf("Failed to record crossing of vehicle %v: %v", ev.TrackID, err)
			}
		}
	}

	// Forward threshold alerts raised by the analytics engine this frame
	if newAlerts := m.engine.AlertCount() - alertsBefore; newAlerts > 0 {
		for _, a := range m.engine.RecentAlerts(newAlerts) {
			alertEvents = append(alertEvents, &AlertEvent{
				Kind:      a.Type,
				TrackID:   a.TrackID,
				Message:   a.Message,
				Severity:  a.Severity,
				Timestamp: a.Timestamp,
			})
			if m.recorder != nil {
				if err := m.recorder.RecordAlert(a); err != nil {
					m.Log.Errorf("Failed to record alert for vehicle %v: %v", a.TrackID, err)
				}
			}
		}
	}

	for _, id := range expired {
		m.classifier.Forget(id)
		m.counter.Forget(id)
	}

	m.pruneFlowWindow(ts)

	snap := &Snapshot{
		FrameCount:         m.frameCount,
		Timestamp:          ts,
		Boxes:              boxes,
		Colors:             colors,
		Crossings:          crossings,
		Counting:           m.counter.Stats(),
		ColorDistribution:  m.counter.ColorDistribution(),
		Summary:            m.engine.Summary(),
		CrossingsPerMinute: len(m.crossingTimes),
	}
	m.lastSnapshot = snap
	m.lastImage = frame.Image
	m.lastBoxes = boxes
	m.lastColors = colors

	for _, ev := range alertEvents {
		m.sendToAlertWatchers(ev)
	}
	return snap
}

func (m *Monitor) pruneFlowWindow(now float64) {
	cutoff := now - flowWindowSeconds
	i := 0
	for i < len(m.crossingTimes) && m.crossingTimes[i] <= cutoff {
		i++
	}
	m.crossingTimes = m.crossingTimes[i:]
}

// CrossingsPerMinute returns the number of crossings inside the trailing
// 60 seconds of video time. This is frame-time based, unlike the analytics
// engine's wall-clock flow rate.
func (m *Monitor) CrossingsPerMinute() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.crossingTimes)
}

// Snapshot returns the result of the most recently processed frame, or nil
// before the first frame.
func (m *Monitor) Snapshot() *Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastSnapshot
}

// FrameCount returns the number of frames processed.
func (m *Monitor) FrameCount() int64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.frameCount
}

// CountingStats returns the crossing counter's statistics.
func (m *Monitor) CountingStats() counter.Stats {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counter.Stats()
}

// ColorDistribution returns counted vehicles per color.
func (m *Monitor) ColorDistribution() map[colorclass.Color]int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counter.ColorDistribution()
}

// Records returns the counted vehicle records, in counting order.
func (m *Monitor) Records() []counter.VehicleRecord {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counter.Records()
}

// Summary returns the aggregate analytics snapshot.
func (m *Monitor) Summary() analytics.Summary {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.engine.Summary()
}

// VehicleStats returns per-vehicle analytics, or ok=false for an unknown
// track.
func (m *Monitor) VehicleStats(trackID int64) (analytics.VehicleStats, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.engine.VehicleStats(trackID)
}

// RecentAlerts returns up to n of the most recent analytics alerts,
// oldest first.
func (m *Monitor) RecentAlerts(n int) []analytics.Alert {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.engine.RecentAlerts(n)
}

// LinePosition returns the counting line position fraction.
func (m *Monitor) LinePosition() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counter.LinePosition()
}

// SetLinePosition moves the counting line without touching counting state.
func (m *Monitor) SetLinePosition(pos float64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.counter.SetLinePosition(pos)
}

// WatchColor returns the configured alert color ("" when disabled).
func (m *Monitor) WatchColor() colorclass.Color {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.watchColor
}

// SetWatchColor configures the color match alert. Pass "" to disable.
func (m *Monitor) SetWatchColor(c colorclass.Color) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.watchColor = c
}

// SetPixelsPerMeter changes the speed conversion scale. Values <= 0 are ignored.
func (m *Monitor) SetPixelsPerMeter(ppm float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.engine.SetPixelsPerMeter(ppm)
}

// SetRecorder attaches a persistence sink for crossings and alerts.
func (m *Monitor) SetRecorder(r Recorder) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.recorder = r
}

// ResetStats zeroes the counter and the analytics engine. Line position,
// tracker state and color histories are kept.
func (m *Monitor) ResetStats() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.counter.Reset()
	m.engine.Reset()
	m.crossingTimes = nil
}

// RenderAnnotated draws the monitoring overlay on the most recent frame.
// ok is false before the first frame with pixels has been processed.
func (m *Monitor) RenderAnnotated() (img image.Image, ok bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.lastImage.Pixels == nil {
		return nil, false
	}
	sum := m.engine.Summary()
	return overlay.Render(m.lastImage.ToImage(), m.lastBoxes, m.lastColors, m.counter, &sum, overlay.DefaultOptions()), true
}
