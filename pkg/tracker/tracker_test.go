package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vigiacam/vigia/pkg/nn"
)

func det(class int, x, y int) nn.ObjectDetection {
	return nn.ObjectDetection{
		Class:      class,
		Confidence: 0.9,
		Box:        nn.MakeRect(x, y, x+60, y+40),
	}
}

func TestStableIDAcrossOverlappingFrames(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, exited := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	require.Len(t, boxes, 1)
	require.Empty(t, exited)
	id := boxes[0].TrackID

	// 10 px/frame keeps consecutive boxes overlapping.
	for i := 1; i <= 20; i++ {
		boxes, _ = tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100+i*10, 100)}, float64(i)/30)
		require.Len(t, boxes, 1)
		require.Equal(t, id, boxes[0].TrackID)
	}
	require.Equal(t, 1, tr.ActiveTracks())
	require.Equal(t, 21, tr.Sightings(id))
}

func TestDistanceFallbackWhenBoxesDontOverlap(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	id := boxes[0].TrackID

	// 200 px jump: zero IOU, but still the only candidate.
	boxes, _ = tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 300, 100)}, 0.5)
	require.Equal(t, id, boxes[0].TrackID)
	require.Equal(t, 1, tr.ActiveTracks())
}

func TestClassMismatchSpawnsNewTrack(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	carID := boxes[0].TrackID

	// Same spot, different class: must not steal the car's track.
	boxes, _ = tr.Track([]nn.ObjectDetection{det(nn.ClassTruck, 100, 100)}, 0.1)
	require.NotEqual(t, carID, boxes[0].TrackID)
	require.Equal(t, "truck", boxes[0].ClassName)
	require.Equal(t, 2, tr.ActiveTracks())
}

func TestTwoVehiclesKeepDistinctIDs(t *testing.T) {
	tr := NewTracker(1280, 720)

	frame := func(x1, x2 int) []nn.ObjectDetection {
		return []nn.ObjectDetection{det(nn.ClassCar, x1, 100), det(nn.ClassCar, x2, 500)}
	}
	boxes, _ := tr.Track(frame(100, 800), 0)
	require.Len(t, boxes, 2)
	idA, idB := boxes[0].TrackID, boxes[1].TrackID
	require.NotEqual(t, idA, idB)

	for i := 1; i <= 10; i++ {
		boxes, _ = tr.Track(frame(100+i*10, 800-i*10), float64(i)/30)
		require.Equal(t, idA, boxes[0].TrackID)
		require.Equal(t, idB, boxes[1].TrackID)
	}
}

func TestTrackExpiry(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	id := boxes[0].TrackID

	// Empty frames within the forget window keep the track alive.
	_, exited := tr.Track(nil, 1.0)
	require.Empty(t, exited)
	require.Equal(t, 1, tr.ActiveTracks())

	// Past the window, the track expires and its ID is reported once.
	_, exited = tr.Track(nil, 2.5)
	require.Equal(t, []int64{id}, exited)
	require.Equal(t, 0, tr.ActiveTracks())

	_, exited = tr.Track(nil, 3.0)
	require.Empty(t, exited)
}

func TestExpiredIDIsNeverReused(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	first := boxes[0].TrackID
	tr.Track(nil, 5)

	boxes, _ = tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 6)
	require.NotEqual(t, first, boxes[0].TrackID)
}

func TestCustomForgetAfter(t *testing.T) {
	tr := NewTracker(1280, 720)
	tr.SetForgetAfter(0.5)

	tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	_, exited := tr.Track(nil, 0.6)
	require.Len(t, exited, 1)
}

func TestDisplacement(t *testing.T) {
	tr := NewTracker(1280, 720)

	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	id := boxes[0].TrackID
	tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 400)}, 0.5)

	require.InDelta(t, 300.0, float64(tr.Displacement(id)), 1e-3)
	require.Equal(t, float32(0), tr.Displacement(999))
}

func TestReset(t *testing.T) {
	tr := NewTracker(1280, 720)
	boxes, _ := tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 0)
	first := boxes[0].TrackID

	tr.Reset()
	require.Equal(t, 0, tr.ActiveTracks())

	boxes, _ = tr.Track([]nn.ObjectDetection{det(nn.ClassCar, 100, 100)}, 1)
	require.Greater(t, boxes[0].TrackID, first)
}