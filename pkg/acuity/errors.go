package acuity

import "errors"

var (
	// ErrInvalidDirection is returned for an unknown answer.
	ErrInvalidDirection = errors.New("acuity: invalid direction")

	// ErrNotActive is returned when answering a test that has finished.
	ErrNotActive = errors.New("acuity: test not active")
)
