// Package acuity implements the adaptive staircase that drives a two-eye
// visual-acuity test with rotated "C" optotypes.
package acuity

// Step is one optotype size in the test sequence.
type Step struct {
	Millimeters float64 `json:"mm"`
	Acuity      string  `json:"acuity"`
	Pixels      int     `json:"px"`
	LogMAR      float64 `json:"logmar"`
}

// Steps is ordered largest to smallest: index 0 is the easiest optotype.
// Pixel sizes assume a typical screen viewed at 40 cm.
var Steps = [...]Step{
	{Millimeters: 87.0, Acuity: "6/60", Pixels: 218, LogMAR: 1.0},
	{Millimeters: 52.2, Acuity: "6/36", Pixels: 131, LogMAR: 0.8},
	{Millimeters: 34.8, Acuity: "6/24", Pixels: 87, LogMAR: 0.6},
	{Millimeters: 26.0, Acuity: "6/18", Pixels: 65, LogMAR: 0.4},
	{Millimeters: 17.4, Acuity: "6/12", Pixels: 44, LogMAR: 0.3},
	{Millimeters: 13.0, Acuity: "6/9", Pixels: 33, LogMAR: 0.2},
	{Millimeters: 8.7, Acuity: "6/6", Pixels: 22, LogMAR: 0.1},
}

// LastStep is the index of the smallest optotype.
const LastStep = len(Steps) - 1

// StreakThreshold is the number of consecutive correct answers needed to
// advance a step, and of consecutive wrong answers that end an eye's run.
const StreakThreshold = 3

// StepAt returns the step at index i. It panics if i is out of range.
func StepAt(i int) Step {
	return Steps[i]
}
