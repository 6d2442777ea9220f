package domain

import "image"

// Unknown is the label given to a face that did not pass both match gates
const Unknown = "Unknown"

// Embedding is a fixed-length face descriptor (128 floats for dlib's ResNet model)
type Embedding []float64

// BoundingBox is a face region in (top, right, bottom, left) order, the order
// returned by face_recognition style detectors
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Scale multiplies every coordinate by factor
func (b BoundingBox) Scale(factor int) BoundingBox {
	return BoundingBox{
		Top:    b.Top * factor,
		Right:  b.Right * factor,
		Bottom: b.Bottom * factor,
		Left:   b.Left * factor,
	}
}

// Rect converts the box to an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func (b BoundingBox) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Point is a 2D landmark coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Eye holds the six-point eye contour: corners at 0 and 3, upper lid at 1 and 2,
// lower lid at 4 and 5
type Eye [6]Point

// EyeLandmarks groups both eye contours of a single face
type EyeLandmarks struct {
	Left  Eye `json:"left_eye"`
	Right Eye `json:"right_eye"`
}

// DetectedFace lives for a single frame
type DetectedFace struct {
	Box       BoundingBox
	Embedding Embedding
	Eyes      *EyeLandmarks
}

// GalleryEntry is an enrolled identity with its reference embedding
type GalleryEntry struct {
	Identity  string    `json:"identity"`
	Embedding Embedding `json:"-"`
}

// Detection is what the annotator draws: a box in full-frame coordinates and
// the resolved identity
type Detection struct {
	Box      BoundingBox `json:"box"`
	Identity string      `json:"identity"`
	Distance float64     `json:"distance"`
}
