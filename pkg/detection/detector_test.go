package detection

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-acuity/pkg/geometry"
)

func TestFace_Box(t *testing.T) {
	tests := []struct {
		name   string
		face   Face
		expect geometry.FaceBox
	}{
		{
			name:   "box prediction",
			face:   BoxFace(10, 20, 110, 140, 0.9),
			expect: geometry.FaceBox{Left: 10, Top: 20, Right: 110, Bottom: 140},
		},
		{
			name: "mesh prediction",
			face: Face{Prediction: geometry.MeshPrediction{Points: []geometry.Point{
				{X: 5, Y: 9}, {X: 50, Y: 2}, {X: 20, Y: 40},
			}}},
			expect: geometry.FaceBox{Left: 5, Top: 2, Right: 50, Bottom: 40},
		},
		{
			name:   "no prediction",
			face:   Face{},
			expect: geometry.FaceBox{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.face.Box(); got != tc.expect {
				t.Errorf("Box: got %+v, want %+v", got, tc.expect)
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		faces     []Face
		expectNil bool
		expectIdx int // Expected index of best face
	}{
		{
			name:      "empty list",
			faces:     []Face{},
			expectNil: true,
		},
		{
			name:      "single face",
			faces:     []Face{BoxFace(40, 40, 60, 60, 0.9)},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			faces: []Face{
				BoxFace(0, 0, 40, 40, 0.5),   // larger but low conf
				BoxFace(30, 30, 50, 50, 0.95), // smaller but high conf
			},
			expectIdx: 1, // 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 1.0*0.3 = 0.65
		},
		{
			name: "similar confidence picks larger",
			faces: []Face{
				BoxFace(0, 0, 50, 50, 0.8),
				BoxFace(30, 30, 40, 40, 0.8),
			},
			expectIdx: 0,
		},
		{
			name: "empty box never wins on confidence",
			faces: []Face{
				BoxFace(10, 10, 10, 10, 1.0),
				BoxFace(0, 0, 50, 50, 0.5),
			},
			expectIdx: 1, // 1.0*0.7 + 0 = 0.70 would beat 0.5*0.7 + 0.3 = 0.65
		},
		{
			name:      "single empty box",
			faces:     []Face{BoxFace(20, 20, 20, 40, 0.9)},
			expectNil: true,
		},
		{
			name: "all degenerate boxes",
			faces: []Face{
				{Confidence: 0.3},
				{Confidence: 0.6},
			},
			expectNil: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.faces)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}

			if best == nil {
				t.Fatal("SelectBest: expected non-nil, got nil")
			}

			if best != &tc.faces[tc.expectIdx] {
				t.Errorf("SelectBest: got %+v, want %+v", *best, tc.faces[tc.expectIdx])
			}
		})
	}
}

func TestResult_Best(t *testing.T) {
	if _, ok := (Result{}).Best(); ok {
		t.Error("Best: expected no face in empty result")
	}

	res := Result{Faces: []Face{BoxFace(0, 0, 10, 10, 0.4), BoxFace(0, 0, 100, 100, 0.9)}}
	face, ok := res.Best()
	if !ok {
		t.Fatal("Best: expected a face")
	}
	if face.Confidence != 0.9 {
		t.Errorf("Best: got confidence %.2f, want 0.90", face.Confidence)
	}
}

func TestFromRaw(t *testing.T) {
	raw := []geometry.RawPrediction{
		{TopLeft: []float64{10, 10}, BottomRight: []float64{90, 100}},
		{TopLeft: []float64{1}}, // malformed, skipped
		{ScaledMesh: [][]float64{{1, 2, 0}, {3, 4, 0}}},
	}

	res := FromRaw(raw, 320, 240)

	if res.FrameWidth != 320 || res.FrameHeight != 240 {
		t.Errorf("FromRaw: frame %dx%d, want 320x240", res.FrameWidth, res.FrameHeight)
	}
	if len(res.Faces) != 2 {
		t.Fatalf("FromRaw: got %d faces, want 2", len(res.Faces))
	}
	if _, ok := res.Faces[0].Prediction.(geometry.LegacyPrediction); !ok {
		t.Errorf("FromRaw: first face is %T, want LegacyPrediction", res.Faces[0].Prediction)
	}
	if _, ok := res.Faces[1].Prediction.(geometry.MeshPrediction); !ok {
		t.Errorf("FromRaw: second face is %T, want MeshPrediction", res.Faces[1].Prediction)
	}
}

func TestMock(t *testing.T) {
	first := Result{Faces: []Face{BoxFace(0, 0, 10, 10, 1)}}
	second := Result{}
	m := NewMock(first, second)

	m.FailNext(errors.New("camera glitch"))
	if _, err := m.Detect(nil); err == nil {
		t.Error("Mock: expected queued error")
	}

	got, _ := m.Detect(nil)
	if len(got.Faces) != 1 {
		t.Errorf("Mock: first result has %d faces, want 1", len(got.Faces))
	}

	// Last result repeats once the queue drains.
	for i := 0; i < 2; i++ {
		got, _ = m.Detect(nil)
		if len(got.Faces) != 0 {
			t.Errorf("Mock: expected empty result, got %d faces", len(got.Faces))
		}
	}

	if m.Calls() != 4 {
		t.Errorf("Mock: calls = %d, want 4", m.Calls())
	}

	m.Close()
	if !m.Closed() {
		t.Error("Mock: Close not recorded")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}

	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("DefaultConfig: ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}

	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Errorf("DefaultConfig: input size should be positive, got %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
}
