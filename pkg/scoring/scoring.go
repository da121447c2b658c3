// Package scoring compares the two eyes of a finished acuity test and
// classifies each eye's severity.
package scoring

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-acuity/pkg/acuity"
)

// Thresholds on logMAR.
const (
	// SimilarityThreshold is the logMAR difference below which both eyes
	// are reported as similar.
	SimilarityThreshold = 0.1

	NormalMaxLogMAR = 0.1
	MildMaxLogMAR   = 0.3
)

// TestDistanceMeters is the nominal viewing distance the step table is
// sized for.
const TestDistanceMeters = 0.4

// Severity is the categorical acuity grade of one eye.
type Severity string

const (
	Normal   Severity = "Normal"
	Mild     Severity = "Mild"
	Moderate Severity = "Moderate"
)

// Classify grades a logMAR value: ≤0.1 Normal, ≤0.3 Mild, otherwise Moderate.
func Classify(logMAR float64) Severity {
	switch {
	case logMAR <= NormalMaxLogMAR:
		return Normal
	case logMAR <= MildMaxLogMAR:
		return Mild
	default:
		return Moderate
	}
}

// Condition returns the label shown in the results table.
func (s Severity) Condition() string {
	switch s {
	case Mild:
		return "Mild Amblyopia"
	case Moderate:
		return "Moderate Amblyopia"
	}
	return "Normal"
}

// Metrics is one row of the per-eye results table.
type Metrics struct {
	Eye          acuity.Eye `json:"eye"`
	Acuity       string     `json:"acuity"`
	LogMAR       float64    `json:"logmar"`
	Millimeters  float64    `json:"mm"`
	Severity     Severity   `json:"severity"`
	Condition    string     `json:"condition"`
	TestDistance float64    `json:"test_distance_m"`
}

func metricsFor(eye acuity.Eye, r acuity.EyeResult) Metrics {
	sev := Classify(r.LogMAR)
	return Metrics{
		Eye:          eye,
		Acuity:       r.Acuity,
		LogMAR:       r.LogMAR,
		Millimeters:  r.Millimeters,
		Severity:     sev,
		Condition:    sev.Condition(),
		TestDistance: TestDistanceMeters,
	}
}

// Summary compares the two eyes.
type Summary struct {
	Similar bool `json:"similar"`

	// WeakerEye and StrongerEye are empty when Similar is true.
	WeakerEye   acuity.Eye `json:"weaker_eye,omitempty"`
	StrongerEye acuity.Eye `json:"stronger_eye,omitempty"`

	// WeaknessPercentage is round(|Δ logMAR| × 100).
	WeaknessPercentage int `json:"weakness_percentage"`

	Text  string  `json:"text"`
	Right Metrics `json:"right"`
	Left  Metrics `json:"left"`
}

// Summarize scores a finished test. The eye with the larger logMAR is the
// weaker one unless the difference is under SimilarityThreshold.
func Summarize(right, left acuity.EyeResult) Summary {
	diff := math.Abs(right.LogMAR - left.LogMAR)

	s := Summary{
		Right: metricsFor(acuity.RightEye, right),
		Left:  metricsFor(acuity.LeftEye, left),
	}

	if diff < SimilarityThreshold {
		s.Similar = true
		s.Text = "Both eyes show similar visual acuity. Continue regular eye exercises to maintain good vision."
		return s
	}

	s.WeakerEye, s.StrongerEye = acuity.RightEye, acuity.LeftEye
	if left.LogMAR > right.LogMAR {
		s.WeakerEye, s.StrongerEye = acuity.LeftEye, acuity.RightEye
	}
	s.WeaknessPercentage = int(math.Round(diff * 100))
	s.Text = fmt.Sprintf(
		"The %s eye is %d%% weaker than the %s eye. Training games will now be adjusted to stimulate the %s eye and improve its strength.",
		s.WeakerEye, s.WeaknessPercentage, s.StrongerEye, s.WeakerEye,
	)
	return s
}
