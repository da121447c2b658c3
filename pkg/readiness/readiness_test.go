package readiness

import (
	"math"
	"testing"
)

func TestGate_Evaluate(t *testing.T) {
	gate := New(DefaultBounds())

	tests := []struct {
		name     string
		distance float64
		forward  bool
		ready    bool
		warning  string
		text     string
		adjust   Adjustment
	}{
		{
			name:     "no face",
			distance: math.NaN(),
			forward:  true,
			warning:  MsgNoFace,
			text:     "Distance: No face detected",
		},
		{
			name:     "too close",
			distance: 0.2,
			forward:  true,
			warning:  MsgAdjust,
			text:     "Distance: 0.20 m",
			adjust:   AdjustFarther,
		},
		{
			name:     "too far",
			distance: 0.75,
			forward:  true,
			warning:  MsgAdjust,
			text:     "Distance: 0.75 m",
			adjust:   AdjustCloser,
		},
		{
			name:     "distance checked before gaze",
			distance: 0.75,
			forward:  false,
			warning:  MsgAdjust,
			text:     "Distance: 0.75 m",
			adjust:   AdjustCloser,
		},
		{
			name:     "in range but looking away",
			distance: 0.4,
			forward:  false,
			warning:  MsgFaceCamera,
			text:     "Distance: 0.40 m",
		},
		{
			name:     "ready",
			distance: 0.415,
			forward:  true,
			ready:    true,
			text:     "Distance: 0.41 m",
		},
		{
			name:     "lower bound inclusive",
			distance: 0.30,
			forward:  true,
			ready:    true,
			text:     "Distance: 0.30 m",
		},
		{
			name:     "upper bound inclusive",
			distance: 0.50,
			forward:  true,
			ready:    true,
			text:     "Distance: 0.50 m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gate.Evaluate(tt.distance, tt.forward)
			if got.Ready != tt.ready {
				t.Errorf("Ready = %v, want %v", got.Ready, tt.ready)
			}
			if got.Warning != tt.warning {
				t.Errorf("Warning = %q, want %q", got.Warning, tt.warning)
			}
			if got.DistanceText != tt.text {
				t.Errorf("DistanceText = %q, want %q", got.DistanceText, tt.text)
			}
			if got.Adjustment != tt.adjust {
				t.Errorf("Adjustment = %q, want %q", got.Adjustment, tt.adjust)
			}
			wantBadge := "Adjust"
			if tt.ready {
				wantBadge = "Ready"
			}
			if got.Badge != wantBadge {
				t.Errorf("Badge = %q, want %q", got.Badge, wantBadge)
			}
		})
	}
}

func TestBounds_Validate(t *testing.T) {
	if errs := DefaultBounds().Validate(); len(errs) != 0 {
		t.Errorf("DefaultBounds should be valid, got %v", errs)
	}
	if errs := (Bounds{Min: 0.5, Max: 0.3}).Validate(); len(errs) != 1 {
		t.Errorf("inverted bounds: got %d errors, want 1", len(errs))
	}
	if errs := (Bounds{Min: 0, Max: 0}).Validate(); len(errs) != 2 {
		t.Errorf("zero bounds: got %d errors, want 2", len(errs))
	}
}
