// Package counter detects vehicles crossing a horizontal counting line,
// decides their direction of travel, and accumulates the counting statistics
// consumed by the UI and export layers. Each track is counted at most once.
package counter

import (
	"fmt"

	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/nn"
	"github.com/vigiacam/vigia/pkg/trackstore"
)

// Direction of a counted crossing.
type Direction string

const (
	// Entrada is downward movement (y grows): a vehicle coming in.
	Entrada Direction = "entrada"
	// Saida is upward movement (y shrinks): a vehicle going out.
	Saida Direction = "saida"
)

// The counting zone is a band of this fraction of the frame height on either
// side of the line.
const zoneMarginFraction = 0.05

// Minimum net vertical movement, in pixels, between the two halves of a
// track's history before we commit to a direction. Tracks that hover at the
// line without net motion are never counted; that is what prevents jitter
// from producing double counts.
const minMovementPx = 20.0

// CrossingEvent is emitted for a track the moment it is counted.
type CrossingEvent struct {
	TrackID   int64            `json:"trackID"`
	Direction Direction        `json:"direction"`
	Color     colorclass.Color `json:"color"`
	Type      string           `json:"type"`
	Timestamp float64          `json:"timestamp"`
}

// VehicleRecord is the immutable record of one counted vehicle.
type VehicleRecord struct {
	TrackID   int64            `json:"trackID"`
	Direction Direction        `json:"direction"`
	Color     colorclass.Color `json:"color"`
	Type      string           `json:"type"`
	Timestamp float64          `json:"timestamp"` // video time, seconds
}

// DirectionTally is a per-color or per-type breakdown entry.
type DirectionTally struct {
	Entrada int `json:"entrada"`
	Saida   int `json:"saida"`
}

// Stats is an immutable snapshot of the counting state.
type Stats struct {
	TotalEntrada int                                 `json:"totalEntrada"`
	TotalSaida   int                                 `json:"totalSaida"`
	TotalGeral   int                                 `json:"totalGeral"`
	ByColor      map[colorclass.Color]DirectionTally `json:"byColor"`
	ByType       map[string]DirectionTally           `json:"byType"`
	RecordCount  int                                 `json:"recordCount"`
}

// Counter counts vehicles that cross the counting line.
// Not safe for concurrent use; the frame pipeline is its single writer.
type Counter struct {
	frameHeight  int
	lineY        int
	zoneMargin   int
	linePosition float64

	tracks  *trackstore.Store
	counted map[int64]bool

	totalEntrada int
	totalSaida   int
	byColor      map[colorclass.Color]*DirectionTally
	byType       map[string]*DirectionTally
	records      []VehicleRecord
}

// NewCounter creates a counter for frames of the given height, with the
// counting line at linePosition (a fraction of the height, exclusive 0..1).
// Invalid configuration is rejected here rather than clamped.
func NewCounter(frameHeight int, linePosition float64) (*Counter, error) {
	if frameHeight <= 0 {
		return nil, fmt.Errorf("counter: frame height must be positive, got %v", frameHeight)
	}
	if linePosition <= 0 || linePosition >= 1 {
		return nil, fmt.Errorf("counter: line position must be inside (0, 1), got %v", linePosition)
	}
	c := &Counter{
		frameHeight: frameHeight,
		tracks:      trackstore.NewStore(),
	}
	c.reconfigure(linePosition)
	c.clear()
	return c, nil
}

func (c *Counter) reconfigure(linePosition float64) {
	c.linePosition = linePosition
	c.lineY = int(float64(c.frameHeight)*linePosition + 0.5)
	c.zoneMargin = int(float64(c.frameHeight)*zoneMarginFraction + 0.5)
}

func (c *Counter) clear() {
	c.counted = map[int64]bool{}
	c.totalEntrada = 0
	c.totalSaida = 0
	c.byColor = map[colorclass.Color]*DirectionTally{}
	c.byType = map[string]*DirectionTally{}
	c.records = nil
	c.tracks.Reset()
}

// LineY returns the pixel row of the counting line.
func (c *Counter) LineY() int {
	return c.lineY
}

// ZoneMargin returns the half-width of the counting zone, in pixel rows.
func (c *Counter) ZoneMargin() int {
	return c.zoneMargin
}

// LinePosition returns the current line position fraction.
func (c *Counter) LinePosition() float64 {
	return c.linePosition
}

// SetLinePosition moves the counting line. This is a configuration mutation:
// counting state is untouched.
func (c *Counter) SetLinePosition(linePosition float64) error {
	if linePosition <= 0 || linePosition >= 1 {
		return fmt.Errorf("counter: line position must be inside (0, 1), got %v", linePosition)
	}
	c.reconfigure(linePosition)
	return nil
}

// Update consumes one frame's tracked boxes and their smoothed colors, and
// returns the crossings decided on this frame. Boxes without a track identity
// are ignored. A track already counted stays counted forever; a track in the
// zone whose direction is still ambiguous remains eligible on later frames.
func (c *Counter) Update(boxes []nn.TrackedBox, colors map[int64]colorclass.Color, timestamp float64) []CrossingEvent {
	var crossings []CrossingEvent

	for _, box := range boxes {
		if box.TrackID < 0 {
			continue
		}
		_, centerY := box.Box.CenterF()
		c.tracks.Append(box.TrackID, centerY)

		if c.counted[box.TrackID] {
			continue
		}
		if !c.inZone(centerY) {
			continue
		}
		dir, ok := c.direction(box.TrackID)
		if !ok {
			continue
		}

		c.counted[box.TrackID] = true

		color, okColor := colors[box.TrackID]
		if !okColor {
			color = colorclass.Indefinido
		}
		vehicleType := box.ClassName
		if vehicleType == "" {
			vehicleType = nn.VehicleTypeName(box.Class)
		}

		c.records = append(c.records, VehicleRecord{
			TrackID:   box.TrackID,
			Direction: dir,
			Color:     color,
			Type:      vehicleType,
			Timestamp: timestamp,
		})
		if dir == Entrada {
			c.totalEntrada++
		} else {
			c.totalSaida++
		}
		c.tallyFor(color, vehicleType, dir)

		crossings = append(crossings, CrossingEvent{
			TrackID:   box.TrackID,
			Direction: dir,
			Color:     color,
			Type:      vehicleType,
			Timestamp: timestamp,
		})
	}

	return crossings
}

func (c *Counter) inZone(centerY float64) bool {
	d := centerY - float64(c.lineY)
	if d < 0 {
		d = -d
	}
	return d < float64(c.zoneMargin)
}

func (c *Counter) direction(trackID int64) (Direction, bool) {
	delta, ok := c.tracks.HalfSplitDelta(trackID)
	if !ok {
		return "", false
	}
	if delta > minMovementPx {
		return Entrada, true
	}
	if delta < -minMovementPx {
		return Saida, true
	}
	return "", false
}

func (c *Counter) tallyFor(color colorclass.Color, vehicleType string, dir Direction) {
	byColor := c.byColor[color]
	if byColor == nil {
		byColor = &DirectionTally{}
		c.byColor[color] = byColor
	}
	byType := c.byType[vehicleType]
	if byType == nil {
		byType = &DirectionTally{}
		c.byType[vehicleType] = byType
	}
	if dir == Entrada {
		byColor.Entrada++
		byType.Entrada++
	} else {
		byColor.Saida++
		byType.Saida++
	}
}

// Forget drops the position history of a track that has left the frame.
// The counted flag is kept, so a stale detection under the same ID can never
// produce a second count.
func (c *Counter) Forget(trackID int64) {
	c.tracks.Forget(trackID)
}

// Stats returns an immutable snapshot of the counting statistics.
func (c *Counter) Stats() Stats {
	s := Stats{
		TotalEntrada: c.totalEntrada,
		TotalSaida:   c.totalSaida,
		TotalGeral:   c.totalEntrada + c.totalSaida,
		ByColor:      make(map[colorclass.Color]DirectionTally, len(c.byColor)),
		ByType:       make(map[string]DirectionTally, len(c.byType)),
		RecordCount:  len(c.records),
	}
	for color, tally := range c.byColor {
		s.ByColor[color] = *tally
	}
	for vehicleType, tally := range c.byType {
		s.ByType[vehicleType] = *tally
	}
	return s
}

// Records returns a copy of the counted vehicle records, in counting order.
func (c *Counter) Records() []VehicleRecord {
	out := make([]VehicleRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ColorDistribution returns entrada+saida per color.
func (c *Counter) ColorDistribution() map[colorclass.Color]int {
	dist := make(map[colorclass.Color]int, len(c.byColor))
	for color, tally := range c.byColor {
		dist[color] = tally.Entrada + tally.Saida
	}
	return dist
}

// Reset clears all counting state back to construction-time values. The line
// position is kept.
func (c *Counter) Reset() {
	c.clear()
}
