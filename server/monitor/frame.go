package monitor

import (
	"io"

	"github.com/vigiacam/vigia/pkg/nn"
)

// Frame is one unit of pipeline input: the frame pixels, the detections made
// on them, and the frame's video timestamp.
//
// A source provides either raw Detections (the monitor then runs its own
// tracker to assign stable IDs), or Boxes when the upstream detector tracks
// objects itself. When both are set, Boxes wins.
//
// The monitor takes ownership of the frame; the source must not reuse the
// pixel buffer after handing it over.
type Frame struct {
	Image      nn.ImageCrop         // frame pixels; zero value when the source carries none
	Detections []nn.ObjectDetection // raw detections, in frame coordinates
	Boxes      []nn.TrackedBox      // pre-tracked boxes, in frame coordinates
	Timestamp  float64              // video time, seconds
}

// FrameSource produces the frames that the monitor consumes.
// NextFrame blocks until a frame is available, and returns io.EOF when the
// stream ends.
type FrameSource interface {
	NextFrame() (*Frame, error)
}

// FrameList replays a fixed list of frames, for tests and offline analysis
// of recorded footage.
type FrameList struct {
	Frames []*Frame
	next   int
}

func (f *FrameList) NextFrame() (*Frame, error) {
	if f.next >= len(f.Frames) {
		return nil, io.EOF
	}
	frame := f.Frames[f.next]
	f.next++
	return frame, nil
}
