package acuity

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Direction is the side the optotype's gap faces.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every valid direction.
var Directions = [...]Direction{Up, Down, Left, Right}

// ParseDirection converts user input to a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return d, nil
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Rotation returns the clockwise rotation in degrees applied to a "C"
// glyph (gap facing right) to make its gap face d.
func (d Direction) Rotation() int {
	switch d {
	case Down:
		return 90
	case Left:
		return 180
	case Up:
		return 270
	}
	return 0
}

// Picker chooses the direction of the next trial.
type Picker func() Direction

// RandomPicker picks uniformly at random, independent of earlier trials.
func RandomPicker() Direction {
	return Directions[rand.IntN(len(Directions))]
}

// SequencePicker returns a picker cycling through seq. Useful for
// deterministic runs in tests and demos.
func SequencePicker(seq ...Direction) Picker {
	if len(seq) == 0 {
		seq = Directions[:]
	}
	i := 0
	return func() Direction {
		d := seq[i%len(seq)]
		i++
		return d
	}
}
