// Package readiness decides whether the subject is positioned well enough
// to take the test and what guidance to show otherwise.
//
// The gate is advisory: trial progression never consults it.
package readiness

import (
	"fmt"
	"math"
)

// Default arm's-length viewing range in meters.
const (
	DefaultIdealMin = 0.30
	DefaultIdealMax = 0.50
)

// Guidance texts.
const (
	MsgNoFace     = "No face detected. Make sure your face is visible."
	MsgAdjust     = "Please move farther or closer to the screen to start the test."
	MsgFaceCamera = "Please face the camera for accurate results."
	MsgNoCamera   = "Camera not available, but you can still take the test."
	MsgStartHint  = "Position yourself at arm's length (30-50cm) from the screen for best results."
)

// Adjustment tells the subject which way to move.
type Adjustment string

const (
	AdjustNone    Adjustment = ""
	AdjustCloser  Adjustment = "closer"
	AdjustFarther Adjustment = "farther"
)

// Bounds is the inclusive distance range considered ideal.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultBounds returns the 0.30–0.50 m range.
func DefaultBounds() Bounds {
	return Bounds{Min: DefaultIdealMin, Max: DefaultIdealMax}
}

// Contains reports whether d lies within the bounds (inclusive).
func (b Bounds) Contains(d float64) bool {
	return !(d < b.Min || d > b.Max)
}

// Validate returns a list of problems, or nil if the bounds are usable.
func (b Bounds) Validate() []string {
	var errors []string
	if b.Min <= 0 {
		errors = append(errors, "min distance must be positive")
	}
	if b.Max <= b.Min {
		errors = append(errors, "max distance must be greater than min distance")
	}
	return errors
}

// Status is the per-frame output of the gate.
type Status struct {
	Ready        bool       `json:"ready"`
	Warning      string     `json:"warning"`
	DistanceText string     `json:"distance_text"`
	Badge        string     `json:"badge"`
	Adjustment   Adjustment `json:"adjustment,omitempty"`
}

// Gate evaluates readiness against configured bounds.
type Gate struct {
	bounds Bounds
}

// New creates a gate with the given bounds.
func New(bounds Bounds) *Gate {
	return &Gate{bounds: bounds}
}

// Bounds returns the configured range.
func (g *Gate) Bounds() Bounds {
	return g.bounds
}

// Evaluate applies the rules in order: no face, distance out of range,
// gaze not forward, ready. distance is NaN when no face was detected.
func (g *Gate) Evaluate(distance float64, forward bool) Status {
	if math.IsNaN(distance) {
		return notReady(MsgNoFace, "Distance: No face detected", AdjustNone)
	}

	text := fmt.Sprintf("Distance: %.2f m", distance)

	if !g.bounds.Contains(distance) {
		adj := AdjustCloser
		if distance < g.bounds.Min {
			adj = AdjustFarther
		}
		return notReady(MsgAdjust, text, adj)
	}

	if !forward {
		return notReady(MsgFaceCamera, text, AdjustNone)
	}

	return Status{
		Ready:        true,
		DistanceText: text,
		Badge:        "Ready",
	}
}

func notReady(warning, text string, adj Adjustment) Status {
	return Status{
		Warning:      warning,
		DistanceText: text,
		Badge:        "Adjust",
		Adjustment:   adj,
	}
}
