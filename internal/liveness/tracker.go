package liveness

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Tracker routes landmark observations to blink detectors
type Tracker interface {
	// Observe feeds the landmarks of the face identified by key
	Observe(key string, l domain.EyeLandmarks) Event
}

// SharedTracker feeds every face into one detector regardless of key, so two
// faces in view interleave on the same counter
type SharedTracker struct {
	mu       sync.Mutex
	detector *Detector
}

func NewSharedTracker(threshold float64, consecFrames int) *SharedTracker {
	return &SharedTracker{detector: NewDetector(threshold, consecFrames)}
}

func (t *SharedTracker) Observe(_ string, l domain.EyeLandmarks) Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detector.Update(l)
}

// KeyedTracker keeps one detector per key
type KeyedTracker struct {
	mu           sync.Mutex
	threshold    float64
	consecFrames int
	detectors    map[string]*Detector
}

func NewKeyedTracker(threshold float64, consecFrames int) *KeyedTracker {
	return &KeyedTracker{
		threshold:    threshold,
		consecFrames: consecFrames,
		detectors:    make(map[string]*Detector),
	}
}

func (t *KeyedTracker) Observe(key string, l domain.EyeLandmarks) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.detectors[key]
	if !ok {
		d = NewDetector(t.threshold, t.consecFrames)
		t.detectors[key] = d
	}
	return d.Update(l)
}

// NewTracker selects the tracker for scope ("shared" or "identity")
func NewTracker(scope string, threshold float64, consecFrames int) Tracker {
	if scope == "identity" {
		return NewKeyedTracker(threshold, consecFrames)
	}
	return NewSharedTracker(threshold, consecFrames)
}
