package geometry

import "gonum.org/v1/gonum/floats"

// Point is an (x, y) pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Prediction is one face prediction from a detector. It is a closed set:
// BoxPrediction, LegacyPrediction or MeshPrediction.
type Prediction interface {
	faceBox() FaceBox
}

// BoxPrediction carries explicit box corners.
type BoxPrediction struct {
	TopLeft     Point
	BottomRight Point
}

func (p BoxPrediction) faceBox() FaceBox {
	return FaceBox{Left: p.TopLeft.X, Top: p.TopLeft.Y, Right: p.BottomRight.X, Bottom: p.BottomRight.Y}
}

// LegacyPrediction carries the older top-level corner fields.
type LegacyPrediction struct {
	TopLeft     Point
	BottomRight Point
}

func (p LegacyPrediction) faceBox() FaceBox {
	return FaceBox{Left: p.TopLeft.X, Top: p.TopLeft.Y, Right: p.BottomRight.X, Bottom: p.BottomRight.Y}
}

// MeshPrediction carries only a landmark point cloud.
type MeshPrediction struct {
	Points []Point
}

func (p MeshPrediction) faceBox() FaceBox {
	if len(p.Points) == 0 {
		return FaceBox{}
	}
	xs := make([]float64, len(p.Points))
	ys := make([]float64, len(p.Points))
	for i, pt := range p.Points {
		xs[i], ys[i] = pt.X, pt.Y
	}
	return FaceBox{
		Left:   floats.Min(xs),
		Top:    floats.Min(ys),
		Right:  floats.Max(xs),
		Bottom: floats.Max(ys),
	}
}

// ToFaceBox normalizes any prediction to a FaceBox. A nil prediction yields
// the degenerate box {0,0,0,0}.
func ToFaceBox(p Prediction) FaceBox {
	if p == nil {
		return FaceBox{}
	}
	return p.faceBox()
}

// RawBox is the nested box field of a RawPrediction.
type RawBox struct {
	TopLeft     []float64 `json:"topLeft,omitempty"`
	BottomRight []float64 `json:"bottomRight,omitempty"`
}

// RawPrediction is the loosely-typed record emitted by browser landmark
// detectors. Any subset of the fields may be present.
type RawPrediction struct {
	Box         *RawBox     `json:"box,omitempty"`
	TopLeft     []float64   `json:"topLeft,omitempty"`
	BottomRight []float64   `json:"bottomRight,omitempty"`
	ScaledMesh  [][]float64 `json:"scaledMesh,omitempty"`
	Mesh        [][]float64 `json:"mesh,omitempty"`
}

// Classify picks the first usable shape of raw in the order box corners,
// legacy corners, point cloud. It returns nil when none is present.
func Classify(raw RawPrediction) Prediction {
	if raw.Box != nil {
		if tl, ok := toPoint(raw.Box.TopLeft); ok {
			if br, ok := toPoint(raw.Box.BottomRight); ok {
				return BoxPrediction{TopLeft: tl, BottomRight: br}
			}
		}
	}

	if tl, ok := toPoint(raw.TopLeft); ok {
		if br, ok := toPoint(raw.BottomRight); ok {
			return LegacyPrediction{TopLeft: tl, BottomRight: br}
		}
	}

	mesh := raw.ScaledMesh
	if len(mesh) == 0 {
		mesh = raw.Mesh
	}
	points := make([]Point, 0, len(mesh))
	for _, coords := range mesh {
		if pt, ok := toPoint(coords); ok {
			points = append(points, pt)
		}
	}
	if len(points) > 0 {
		return MeshPrediction{Points: points}
	}

	return nil
}

// toPoint reads the first two coordinates; extra ones (z) are ignored.
func toPoint(coords []float64) (Point, bool) {
	if len(coords) < 2 {
		return Point{}, false
	}
	return Point{X: coords[0], Y: coords[1]}, true
}
