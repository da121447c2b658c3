package main

import "strings"

// glyph is a "C" with its gap facing right.
var glyph = []string{
	" ##### ",
	"##   ##",
	"##     ",
	"##   ##",
	" ##### ",
}

// render draws the optotype with its gap facing dir. Larger steps are
// drawn at twice the size.
func render(dir string, step int) string {
	rows := rotate(glyph, dir)
	if step < 2 {
		rows = scale(rows, 2)
	}
	return strings.Join(rows, "\n")
}

// rotate turns the right-facing glyph clockwise so the gap faces dir.
func rotate(rows []string, dir string) []string {
	turns := map[string]int{"right": 0, "down": 1, "left": 2, "up": 3}[dir]
	for i := 0; i < turns; i++ {
		rows = rotateCW(rows)
	}
	return rows
}

func rotateCW(rows []string) []string {
	h, w := len(rows), len(rows[0])
	out := make([]string, w)
	for x := 0; x < w; x++ {
		var b strings.Builder
		for y := h - 1; y >= 0; y-- {
			b.WriteByte(rows[y][x])
		}
		out[x] = b.String()
	}
	return out
}

func scale(rows []string, n int) []string {
	out := make([]string, 0, len(rows)*n)
	for _, r := range rows {
		var b strings.Builder
		for i := 0; i < len(r); i++ {
			b.WriteString(strings.Repeat(string(r[i]), n))
		}
		for i := 0; i < n; i++ {
			out = append(out, b.String())
		}
	}
	return out
}

// parseAnswer accepts a direction or its first letter.
func parseAnswer(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "u", "up", "w", "k":
		return "up", true
	case "d", "down", "s", "j":
		return "down", true
	case "l", "left", "a", "h":
		return "left", true
	case "r", "right":
		return "right", true
	}
	return "", false
}
