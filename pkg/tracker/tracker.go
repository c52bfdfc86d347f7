// Package tracker associates per-frame vehicle detections with stable track
// IDs, for pipelines whose detector does not track objects itself.
package tracker

import (
	"github.com/bmharper/flatbush-go"
	"github.com/bmharper/ringbuffer"
	"github.com/vigiacam/vigia/pkg/nn"
)

const (
	// After this many seconds of frame time without a sighting, we believe
	// the vehicle has left the frame, or was a false detection.
	DefaultForgetAfter = 2.0

	defaultHistorySize = 32
)

// A time and box where we saw a vehicle
type timeAndBox struct {
	time      float64
	detection nn.ObjectDetection
}

// Internal state of a vehicle that we're tracking
type trackedVehicle struct {
	id             int64 // every new tracked vehicle gets a unique id
	firstDetection nn.ObjectDetection
	lastPosition   nn.Rect // equivalent to the newest history entry, kept here for lookup speed
	history        ringbuffer.RingP[timeAndBox]
	totalSightings int
}

func (t *trackedVehicle) mostRecent() timeAndBox {
	return t.history.Peek(t.history.Len() - 1)
}

// Tracker matches detections across frames by box overlap, falling back to
// center distance when the effective framerate is too low for boxes of the
// same vehicle to overlap at all.
//
// Tracker is not safe for concurrent use. The frame pipeline is single
// threaded, so it doesn't need to be.
type Tracker struct {
	frameWidth  int
	frameHeight int
	forgetAfter float64 // seconds of frame time
	nextID      int64
	tracked     []*trackedVehicle
}

// NewTracker creates a tracker for frames of the given dimensions.
func NewTracker(frameWidth, frameHeight int) *Tracker {
	return &Tracker{
		frameWidth:  frameWidth,
		frameHeight: frameHeight,
		forgetAfter: DefaultForgetAfter,
	}
}

// SetForgetAfter overrides the track expiry time, in seconds of frame time.
func (tr *Tracker) SetForgetAfter(seconds float64) {
	if seconds > 0 {
		tr.forgetAfter = seconds
	}
}

// Track ingests the detections of one frame, stamped with the frame's
// timestamp in seconds. Timestamps must be monotonically non-decreasing.
// It returns the tracked boxes visible in this frame, and the IDs of tracks
// that expired during this frame.
func (tr *Tracker) Track(detections []nn.ObjectDetection, timestamp float64) ([]nn.TrackedBox, []int64) {
	// Create spatial index on the currently tracked vehicles
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(tr.tracked))
	for _, t := range tr.tracked {
		box := &t.lastPosition
		fb.Add(int32(box.X), int32(box.Y), int32(box.X2()), int32(box.Y2()))
	}
	fb.Finish()

	minSearchBuffer := int32(0.05 * float64(tr.frameWidth))

	// Map from detections[i] to tracked[j]
	newToTracked := make([]int, len(detections))
	for i := range newToTracked {
		newToTracked[i] = -1
	}
	trackedHasMatch := make([]bool, len(tr.tracked))

	// Search among tr.tracked (but only the indices in existingList), and find
	// the closest vehicle of the same class to detections[newIndex].
	// We allow boxes to have zero overlap, because the effective framerate is
	// often low enough that a vehicle moves so far between frames that the
	// boxes don't overlap at all. So if IOU is zero, we fall back to distance
	// between box centers.
	findClosestFromList := func(newIndex int, existingList []int) int {
		det := &detections[newIndex]
		bestJ := -1
		bestIOU := float32(0)
		bestDistance := float32(9e20)
		for _, j := range existingList {
			if trackedHasMatch[j] {
				continue
			}
			old := tr.tracked[j]
			if old.firstDetection.Class != det.Class {
				continue
			}
			iou := det.Box.IOU(old.lastPosition)
			distance := det.Box.Center().Distance(old.lastPosition.Center())
			if iou > bestIOU {
				bestIOU = iou
				bestJ = j
			} else if bestIOU == 0 && distance < bestDistance {
				bestDistance = distance
				bestJ = j
			}
		}
		if bestJ != -1 {
			trackedHasMatch[bestJ] = true
			newToTracked[newIndex] = bestJ
		}
		return bestJ
	}

	// Phase 1:
	// Match each detection against the tracked vehicles near it.
	nearbyIdx := []int{}
	for i := range detections {
		det := &detections[i]
		searchBufferX := max(minSearchBuffer, int32(0.8*float64(det.Box.Width)))
		searchBufferY := max(minSearchBuffer, int32(0.8*float64(det.Box.Height)))
		nearbyIdx = fb.SearchFast(int32(det.Box.X)-searchBufferX, int32(det.Box.Y)-searchBufferY, int32(det.Box.X2())+searchBufferX, int32(det.Box.Y2())+searchBufferY, nearbyIdx)
		findClosestFromList(i, nearbyIdx)
	}

	// Phase 2:
	// Match leftover detections to *any* unmatched track, no matter how far.
	// Without this, a fast vehicle at low FPS would spawn a fresh track on
	// every frame and never accumulate the samples that counting and speed
	// estimation need.
	unmatched := []int{}
	for j := range tr.tracked {
		if !trackedHasMatch[j] {
			unmatched = append(unmatched, j)
		}
	}
	for i := range detections {
		if newToTracked[i] != -1 {
			continue
		}
		findClosestFromList(i, unmatched)
	}

	// Update existing tracks, and create new ones
	visible := make([]nn.TrackedBox, 0, len(detections))
	for i := range detections {
		det := &detections[i]
		bestJ := newToTracked[i]
		if bestJ == -1 {
			bestJ = len(tr.tracked)
			tr.nextID++
			tr.tracked = append(tr.tracked, &trackedVehicle{
				id:             tr.nextID,
				firstDetection: *det,
				history:        ringbuffer.NewRingP[timeAndBox](defaultHistorySize),
			})
		}
		t := tr.tracked[bestJ]
		t.totalSightings++
		t.lastPosition = det.Box
		t.history.Add(timeAndBox{
			time:      timestamp,
			detection: *det,
		})
		visible = append(visible, nn.TrackedBox{
			TrackID:    t.id,
			Class:      det.Class,
			ClassName:  nn.VehicleTypeName(det.Class),
			Confidence: det.Confidence,
			Box:        det.Box,
		})
	}

	// Expire tracks that we haven't seen in a while
	remaining := tr.tracked[:0]
	exited := []int64{}
	for _, t := range tr.tracked {
		if timestamp-t.mostRecent().time > tr.forgetAfter {
			exited = append(exited, t.id)
		} else {
			remaining = append(remaining, t)
		}
	}
	tr.tracked = remaining

	return visible, exited
}

// ActiveTracks returns the number of tracks that have not yet expired.
func (tr *Tracker) ActiveTracks() int {
	return len(tr.tracked)
}

// Sightings returns the number of frames in which the given track has been
// seen, or 0 for an unknown track.
func (tr *Tracker) Sightings(trackID int64) int {
	for _, t := range tr.tracked {
		if t.id == trackID {
			return t.totalSightings
		}
	}
	return 0
}

// Reset drops all tracks. Track IDs keep incrementing so that IDs from
// before the reset are never reused.
func (tr *Tracker) Reset() {
	tr.tracked = nil
}

// Displacement returns the straight line distance in pixels between the
// first and most recent sighting of a track, or 0 for an unknown track.
func (tr *Tracker) Displacement(trackID int64) float32 {
	for _, t := range tr.tracked {
		if t.id == trackID {
			return t.firstDetection.Box.Center().Distance(t.mostRecent().detection.Box.Center())
		}
	}
	return 0
}
