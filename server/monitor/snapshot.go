package monitor

import (
	"time"

	"github.com/vigiacam/vigia/pkg/analytics"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/pkg/counter"
	"github.com/vigiacam/vigia/pkg/nn"
)

// AlertColorMatch is raised when a vehicle of the configured watch color is
// counted. The analytics engine's alert kinds (long_dwell, high_speed) pass
// through with their own names.
const AlertColorMatch = "color_match"

// AlertEvent is one alert, as forwarded to alert watchers (notifications,
// websocket clients).
type AlertEvent struct {
	Kind      string    `json:"kind"`
	TrackID   int64     `json:"trackID"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the immutable result of processing one frame. Watchers and API
// handlers share snapshots, so nothing in here may be mutated after publish.
type Snapshot struct {
	FrameCount         int64                      `json:"frameCount"`
	Timestamp          float64                    `json:"timestamp"` // video time, seconds
	Boxes              []nn.TrackedBox            `json:"boxes"`
	Colors             map[int64]colorclass.Color `json:"colors"`
	Crossings          []counter.CrossingEvent    `json:"crossings"`
	Counting           counter.Stats              `json:"counting"`
	ColorDistribution  map[colorclass.Color]int   `json:"colorDistribution"`
	Summary            analytics.Summary          `json:"summary"`
	CrossingsPerMinute int                        `json:"crossingsPerMinute"`
}
