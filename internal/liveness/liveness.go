package liveness

import (
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const (
	DefaultEARThreshold = 0.25
	DefaultConsecFrames = 3
)

// Event is the outcome of feeding one frame to the detector
type Event int

const (
	NoEvent Event = iota
	BlinkCompleted
)

func (e Event) String() string {
	if e == BlinkCompleted {
		return "blink_completed"
	}
	return "no_event"
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2*|p1-p4|) over the six-point contour.
// A degenerate eye with coincident corners has ratio 0.
func EyeAspectRatio(eye domain.Eye) float64 {
	a := dist(eye[1], eye[5])
	b := dist(eye[2], eye[4])
	c := dist(eye[0], eye[3])
	if c == 0 {
		return 0
	}
	return (a + b) / (2 * c)
}

// AverageEAR is the mean of the left and right eye aspect ratios
func AverageEAR(l domain.EyeLandmarks) float64 {
	return (EyeAspectRatio(l.Left) + EyeAspectRatio(l.Right)) / 2
}

func dist(p, q domain.Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Detector counts consecutive low-EAR frames and reports a blink when the eye
// reopens after at least consecFrames of them. Not safe for concurrent use.
type Detector struct {
	threshold    float64
	consecFrames int
	counter      int
}

func NewDetector(threshold float64, consecFrames int) *Detector {
	if threshold <= 0 {
		threshold = DefaultEARThreshold
	}
	if consecFrames < 1 {
		consecFrames = DefaultConsecFrames
	}
	return &Detector{threshold: threshold, consecFrames: consecFrames}
}

// Update feeds one frame's eye landmarks
func (d *Detector) Update(l domain.EyeLandmarks) Event {
	return d.UpdateEAR(AverageEAR(l))
}

// UpdateEAR feeds one frame's averaged EAR
func (d *Detector) UpdateEAR(ear float64) Event {
	if ear < d.threshold {
		d.counter++
		return NoEvent
	}

	event := NoEvent
	if d.counter >= d.consecFrames {
		event = BlinkCompleted
	}
	d.counter = 0
	return event
}

// Counter returns the current run of consecutive low-EAR frames
func (d *Detector) Counter() int {
	return d.counter
}
