package kiosk

import (
	"time"

	"github.com/teslashibe/go-acuity/pkg/acuity"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/protocol"
	"github.com/teslashibe/go-acuity/pkg/readiness"
	"github.com/teslashibe/go-acuity/pkg/scoring"
)

// ReadingData converts a monitor reading to its wire form.
func ReadingData(r monitor.Reading) protocol.ReadingData {
	out := protocol.ReadingData{
		Forward:      r.Forward,
		Ready:        r.Status.Ready,
		Warning:      r.Status.Warning,
		DistanceText: r.Status.DistanceText,
		Badge:        r.Status.Badge,
		Adjustment:   string(r.Status.Adjustment),
	}
	if r.HasFace() {
		d := r.Distance
		out.DistanceM = &d
	}
	return out
}

// TrialData converts a trial to its wire form.
func TrialData(testID string, t acuity.Trial) protocol.TrialData {
	step := acuity.StepAt(t.StepIndex)
	return protocol.TrialData{
		TestID:      testID,
		Eye:         string(t.Eye),
		Direction:   string(t.Direction),
		Rotation:    t.Rotation,
		StepIndex:   t.StepIndex,
		Pixels:      t.Pixels,
		Acuity:      step.Acuity,
		Millimeters: step.Millimeters,
	}
}

// EyeResultData converts an eye result to its wire form.
func EyeResultData(testID string, eye acuity.Eye, r acuity.EyeResult) protocol.EyeResultData {
	return protocol.EyeResultData{
		TestID:      testID,
		Eye:         string(eye),
		StepIndex:   r.StepIndex,
		Acuity:      r.Acuity,
		LogMAR:      r.LogMAR,
		Millimeters: r.Millimeters,
	}
}

// SummaryData converts a summary to its wire form.
func SummaryData(testID string, when time.Time, s scoring.Summary) protocol.SummaryData {
	return protocol.SummaryData{
		TestID:             testID,
		When:               when.UTC(),
		Similar:            s.Similar,
		WeakerEye:          string(s.WeakerEye),
		StrongerEye:        string(s.StrongerEye),
		WeaknessPercentage: s.WeaknessPercentage,
		Text:               s.Text,
		Eyes:               []protocol.EyeMetrics{eyeMetrics(s.Right), eyeMetrics(s.Left)},
	}
}

func eyeMetrics(m scoring.Metrics) protocol.EyeMetrics {
	return protocol.EyeMetrics{
		Eye:           string(m.Eye),
		Acuity:        m.Acuity,
		LogMAR:        m.LogMAR,
		Severity:      string(m.Severity),
		Condition:     m.Condition,
		TestDistanceM: m.TestDistance,
	}
}

// CameraConfigData builds the capture instructions for one kiosk.
// available reports server-side detection; a kiosk with its own detector
// can still send face predictions without it.
func CameraConfigData(cfg camera.Config, available, enabled bool) protocol.CameraConfigData {
	hint := readiness.MsgStartHint
	if !enabled {
		hint = readiness.MsgNoCamera
	}
	return protocol.CameraConfigData{
		Available:  available,
		Enabled:    enabled,
		Width:      cfg.Width,
		Height:     cfg.Height,
		FacingMode: cfg.FacingMode,
		Hint:       hint,
	}
}
