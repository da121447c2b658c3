// Package camera holds the capture constraints sent to kiosks. Kiosks open
// their own camera; the server only tells them what to ask for.
package camera

// Config holds the capture constraints.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width     int `json:"width"`     // Ideal frame width in pixels
	Height    int `json:"height"`    // Ideal frame height in pixels
	Framerate int `json:"framerate"` // Frames per second sent to the server
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// FacingMode selects the camera on devices with several.
	// Values: "user", "environment"
	FacingMode string `json:"facing_mode"`

	// Enabled is the default camera state for new kiosks.
	Enabled bool `json:"enabled"`
}

// Limits for accepted constraints
const (
	MinWidth     = 160
	MaxWidth     = 1920
	MinHeight    = 120
	MaxHeight    = 1080
	MaxFramerate = 60
)

// DefaultConfig returns the 640x480 user-facing configuration the distance
// estimate is calibrated for.
func DefaultConfig() Config {
	return Config{
		Width:      640,
		Height:     480,
		Framerate:  15,
		Quality:    80,
		FacingMode: "user",
		Enabled:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 1920")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 1080")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	validFacing := map[string]bool{"user": true, "environment": true}
	if !validFacing[c.FacingMode] {
		errors = append(errors, "facing_mode must be user or environment")
	}

	return errors
}
