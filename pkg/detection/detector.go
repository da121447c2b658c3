// Package detection defines the face detector collaborator and its
// backend-independent helpers.
package detection

import (
	"errors"

	"github.com/teslashibe/go-acuity/pkg/geometry"
)

// ErrModelNotFound is returned when a detector model file is missing.
var ErrModelNotFound = errors.New("detection: model file not found")

// Face is one detected face.
type Face struct {
	Prediction geometry.Prediction
	Confidence float64 // 0-1; browser detectors that don't report one use 1
}

// Box returns the face bounding box in pixels.
func (f Face) Box() geometry.FaceBox {
	return geometry.ToFaceBox(f.Prediction)
}

// Result is the output of one detection pass over a frame.
type Result struct {
	Faces       []Face
	FrameWidth  int
	FrameHeight int
}

// Best returns the face chosen by SelectBest, or false when none was found.
func (r Result) Best() (Face, bool) {
	best := SelectBest(r.Faces)
	if best == nil {
		return Face{}, false
	}
	return *best, true
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in a JPEG frame
	Detect(jpeg []byte) (Result, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectBest picks the subject's face from multiple detections.
// Faces with an empty box are never chosen.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(faces []Face) *Face {
	maxArea := 0.0
	for _, f := range faces {
		if a := f.Box().Area(); a > maxArea {
			maxArea = a
		}
	}

	bestScore := -1.0
	var best *Face

	for i := range faces {
		box := faces[i].Box()
		if box.Empty() {
			continue
		}
		score := faces[i].Confidence*0.7 + box.Area()/maxArea*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}

	return best
}

// FromRaw builds a Result from predictions reported by a browser-side
// detector. Predictions with no usable shape are skipped.
func FromRaw(raw []geometry.RawPrediction, frameWidth, frameHeight int) Result {
	res := Result{FrameWidth: frameWidth, FrameHeight: frameHeight}
	for _, r := range raw {
		if p := geometry.Classify(r); p != nil {
			res.Faces = append(res.Faces, Face{Prediction: p, Confidence: 1})
		}
	}
	return res
}
