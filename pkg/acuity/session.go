package acuity

import "fmt"

// Eye identifies which eye is under test.
type Eye string

const (
	RightEye Eye = "right"
	LeftEye  Eye = "left"
)

// noCorrect marks an eye run with no correct answer yet.
const noCorrect = -1

// EyeRun is the mutable state of one eye's staircase.
type EyeRun struct {
	StepIndex     int `json:"step_index"`
	CorrectStreak int `json:"correct_streak"`
	WrongStreak   int `json:"wrong_streak"`

	// BestCorrect is the step of the most recent correct answer, or -1.
	// Steps only move forward, so this is also the deepest step answered
	// correctly.
	BestCorrect int `json:"best_correct"`
}

func newEyeRun() EyeRun {
	return EyeRun{BestCorrect: noCorrect}
}

// HasCorrect reports whether any answer in this run was correct.
func (r EyeRun) HasCorrect() bool {
	return r.BestCorrect != noCorrect
}

// EyeResult is an eye's finalized score.
type EyeResult struct {
	StepIndex   int     `json:"step_index"`
	Acuity      string  `json:"acuity"`
	LogMAR      float64 `json:"logmar"`
	Millimeters float64 `json:"mm"`
}

// ResultAt snapshots the step at index i as a result.
func ResultAt(i int) EyeResult {
	step := StepAt(i)
	return EyeResult{
		StepIndex:   i,
		Acuity:      step.Acuity,
		LogMAR:      step.LogMAR,
		Millimeters: step.Millimeters,
	}
}

// finalize scores a run from its best correct step, or from the step it
// ended on when nothing was ever answered correctly.
func (r EyeRun) finalize() EyeResult {
	if r.HasCorrect() {
		return ResultAt(r.BestCorrect)
	}
	return ResultAt(r.StepIndex)
}

// Trial is what the subject is currently shown.
type Trial struct {
	Eye       Eye       `json:"eye"`
	Direction Direction `json:"direction"`
	StepIndex int       `json:"step_index"`
	Pixels    int       `json:"px"`
	Rotation  int       `json:"rotation"`
}

func newTrial(eye Eye, step int, pick Picker) Trial {
	d := pick()
	return Trial{
		Eye:       eye,
		Direction: d,
		StepIndex: step,
		Pixels:    StepAt(step).Pixels,
		Rotation:  d.Rotation(),
	}
}

// Session is a whole two-eye test. It is a plain value: Advance returns the
// next session rather than mutating its input.
type Session struct {
	Eye    Eye        `json:"eye"`
	Run    EyeRun     `json:"run"`
	Trial  Trial      `json:"trial"`
	Right  *EyeResult `json:"right,omitempty"`
	Left   *EyeResult `json:"left,omitempty"`
	Active bool       `json:"active"`
}

// NewSession starts a test on the right eye at the largest optotype.
func NewSession(pick Picker) Session {
	return Session{
		Eye:    RightEye,
		Run:    newEyeRun(),
		Trial:  newTrial(RightEye, 0, pick),
		Active: true,
	}
}

// Finished reports whether both eyes have been scored.
func (s Session) Finished() bool {
	return !s.Active && s.Right != nil && s.Left != nil
}

// OutcomeKind classifies the result of one answer.
type OutcomeKind string

const (
	// Continue means another trial follows on the same eye.
	Continue OutcomeKind = "continue"

	// EyeComplete means the right eye finished and the left eye starts.
	EyeComplete OutcomeKind = "eye_complete"

	// Finished means both eyes are scored and the session is over.
	Finished OutcomeKind = "finished"
)

// Outcome describes what an answer did.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Correct  bool        `json:"correct"`
	Advanced bool        `json:"advanced"`

	// Eye is the eye the answer was given for.
	Eye Eye `json:"eye"`

	// Trial is the next trial; zero when Kind is Finished.
	Trial Trial `json:"trial"`

	// Result is set when Eye's run just ended.
	Result *EyeResult `json:"result,omitempty"`
}

// Advance applies one answer to s and returns the next session.
//
// Three consecutive correct answers advance one step (or end the run at the
// last step); three consecutive wrong answers end the run. Advance panics on
// an inactive session: the caller must not answer a finished test.
func Advance(s Session, answer Direction, pick Picker) (Session, Outcome) {
	if !s.Active {
		panic("acuity: Advance called on inactive session")
	}

	run := s.Run
	if run.StepIndex < 0 || run.StepIndex > LastStep {
		panic(fmt.Sprintf("acuity: step index %d out of range", run.StepIndex))
	}

	out := Outcome{Eye: s.Eye, Correct: answer == s.Trial.Direction}
	runEnded := false

	if out.Correct {
		run.CorrectStreak++
		run.WrongStreak = 0
		run.BestCorrect = run.StepIndex

		if run.CorrectStreak == StreakThreshold {
			run.CorrectStreak = 0
			if run.StepIndex < LastStep {
				run.StepIndex++
				out.Advanced = true
			} else {
				runEnded = true
			}
		}
	} else {
		run.WrongStreak++
		run.CorrectStreak = 0

		if run.WrongStreak == StreakThreshold {
			runEnded = true
		}
	}

	if !runEnded {
		s.Run = run
		s.Trial = newTrial(s.Eye, run.StepIndex, pick)
		out.Kind = Continue
		out.Trial = s.Trial
		return s, out
	}

	result := run.finalize()
	out.Result = &result

	if s.Eye == RightEye {
		s.Right = &result
		s.Eye = LeftEye
		s.Run = newEyeRun()
		s.Trial = newTrial(LeftEye, 0, pick)
		out.Kind = EyeComplete
		out.Trial = s.Trial
		return s, out
	}

	s.Left = &result
	s.Run = run
	s.Trial = Trial{}
	s.Active = false
	out.Kind = Finished
	return s, out
}
