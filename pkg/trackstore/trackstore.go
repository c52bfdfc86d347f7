// Package trackstore holds per-track position history, keyed by the track
// identity assigned by the external tracker. It is the substrate that the
// crossing counter reads to infer movement direction.
package trackstore

// Maximum number of vertical-center samples kept per track. Older samples are
// evicted first. The direction heuristic only ever looks at this window.
const HistoryCap = 30

// Minimum number of samples before a direction can be inferred.
const minSamplesForDirection = 5

// Store owns the vertical-center history of every active track.
// A Store has no internal locking: it assumes a single writer, which is the
// frame pipeline (one frame is fully processed before the next one starts).
type Store struct {
	positions map[int64][]float64
}

func NewStore() *Store {
	return &Store{
		positions: map[int64][]float64{},
	}
}

// Append records the vertical center of a track for the current frame,
// evicting the oldest sample once the cap is reached.
func (s *Store) Append(trackID int64, centerY float64) {
	h := append(s.positions[trackID], centerY)
	if len(h) > HistoryCap {
		h = h[len(h)-HistoryCap:]
	}
	s.positions[trackID] = h
}

// History returns the track's samples, oldest first. The returned slice is
// owned by the store; callers must not mutate it.
func (s *Store) History(trackID int64) []float64 {
	return s.positions[trackID]
}

// HalfSplitDelta splits the track's history in half and returns
// mean(second half) - mean(first half). A positive delta means net downward
// movement. ok is false while the track has fewer than 5 samples.
//
// Comparing half-window means instead of endpoints makes the inference robust
// to a single noisy frame, at the cost of a latency of half the window before
// a direction is declared.
func (s *Store) HalfSplitDelta(trackID int64) (delta float64, ok bool) {
	h := s.positions[trackID]
	if len(h) < minSamplesForDirection {
		return 0, false
	}
	half := len(h) / 2
	return mean(h[half:]) - mean(h[:half]), true
}

// Forget drops a track's history.
func (s *Store) Forget(trackID int64) {
	delete(s.positions, trackID)
}

// Len returns the number of tracks with history.
func (s *Store) Len() int {
	return len(s.positions)
}

// Reset clears all history.
func (s *Store) Reset() {
	s.positions = map[int64][]float64{}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
