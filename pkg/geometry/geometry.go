// Package geometry turns a face detector's prediction into a bounding box,
// a viewing distance and a forward-gaze decision.
//
// All estimates come from a single monocular frame and the 2-D face box
// only. Distance uses a pinhole camera relation with fixed constants, so
// identical inputs always produce identical readings; it is a first-order
// approximation, not a calibrated measurement.
package geometry

import "math"

// Camera model constants for distance estimation.
const (
	// AssumedFaceWidthMM is the average adult face width in millimeters.
	AssumedFaceWidthMM = 160.0

	// FocalLengthMM is the focal length of a typical front-facing webcam.
	FocalLengthMM = 4.15

	// SensorWidthMM is the physical width of the camera sensor.
	SensorWidthMM = 6.4
)

// Fallback frame dimensions used when the caller does not know them.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480
)

// Gaze heuristics. Both comparisons are strict.
const (
	// CenterTolerance is the maximum offset of the face center from the
	// frame center, as a fraction of frame width/height.
	CenterTolerance = 0.18

	// MinFrontalRatio and MaxFrontalRatio bound the box width/height ratio
	// of a face looking straight at the camera.
	MinFrontalRatio = 0.7
	MaxFrontalRatio = 1.4
)

// FaceBox is an axis-aligned face bounding box in camera pixel coordinates.
type FaceBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the box width in pixels.
func (b FaceBox) Width() float64 {
	return b.Right - b.Left
}

// Height returns the box height in pixels.
func (b FaceBox) Height() float64 {
	return b.Bottom - b.Top
}

// Center returns the center point of the box.
func (b FaceBox) Center() (x, y float64) {
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

// Area returns the box area, or 0 for a degenerate box.
func (b FaceBox) Area() float64 {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box has no usable area. An empty box means
// "no detection" and yields a NaN distance.
func (b FaceBox) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// EstimateDistance returns the approximate viewing distance in meters for a
// face occupying box in a frame frameWidth pixels wide:
//
//	d = (160mm × 4.15mm) / (max(1, w) × (6.4mm / frameWidth)) / 1000
//
// A non-positive frameWidth falls back to DefaultFrameWidth. An empty box
// returns NaN.
func EstimateDistance(box FaceBox, frameWidth float64) float64 {
	if box.Empty() {
		return math.NaN()
	}
	if frameWidth <= 0 {
		frameWidth = DefaultFrameWidth
	}

	faceWidthPx := math.Max(1, box.Width())
	distanceMM := (AssumedFaceWidthMM * FocalLengthMM) / (faceWidthPx * (SensorWidthMM / frameWidth))
	return distanceMM / 1000
}

// Offset returns the box center's offset from the frame center, normalized
// to frame width and height (range -0.5..0.5 inside the frame).
func Offset(box FaceBox, frameWidth, frameHeight float64) (nx, ny float64) {
	if frameWidth <= 0 {
		frameWidth = DefaultFrameWidth
	}
	if frameHeight <= 0 {
		frameHeight = DefaultFrameHeight
	}
	cx, cy := box.Center()
	return cx/frameWidth - 0.5, cy/frameHeight - 0.5
}

// AspectRatio returns width / max(1, height).
func AspectRatio(box FaceBox) float64 {
	return box.Width() / math.Max(1, box.Height())
}

// IsCentered reports whether the box center lies strictly within
// CenterTolerance of the frame center on both axes.
func IsCentered(box FaceBox, frameWidth, frameHeight float64) bool {
	nx, ny := Offset(box, frameWidth, frameHeight)
	return math.Abs(nx) < CenterTolerance && math.Abs(ny) < CenterTolerance
}

// IsFrontal reports whether the box aspect ratio lies strictly between
// MinFrontalRatio and MaxFrontalRatio.
func IsFrontal(box FaceBox) bool {
	ratio := AspectRatio(box)
	return ratio > MinFrontalRatio && ratio < MaxFrontalRatio
}

// EstimateGazeForward reports whether the subject is facing the camera:
// the face must be centered and roughly as wide as it is tall. No 3-D head
// pose is computed.
func EstimateGazeForward(box FaceBox, frameWidth, frameHeight float64) bool {
	return IsCentered(box, frameWidth, frameHeight) && IsFrontal(box)
}
