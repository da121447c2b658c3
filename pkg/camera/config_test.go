package camera

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig should be valid, got %v", errs)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("DefaultConfig size = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.FacingMode != "user" {
		t.Errorf("FacingMode = %q, want user", cfg.FacingMode)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatalf("GetPreset(%q) returned nil", name)
			}
			if errs := cfg.Validate(); len(errs) != 0 {
				t.Errorf("preset %q invalid: %v", name, errs)
			}
		})
	}

	if GetPreset("4k") != nil {
		t.Error("GetPreset should return nil for unknown preset")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{name: "valid", modify: func(c *Config) {}, errors: 0},
		{name: "too narrow", modify: func(c *Config) { c.Width = 100 }, errors: 1},
		{name: "too tall", modify: func(c *Config) { c.Height = 4000 }, errors: 1},
		{name: "zero framerate", modify: func(c *Config) { c.Framerate = 0 }, errors: 1},
		{name: "bad quality", modify: func(c *Config) { c.Quality = 101 }, errors: 1},
		{name: "bad facing", modify: func(c *Config) { c.FacingMode = "left" }, errors: 1},
		{name: "several", modify: func(c *Config) { c.Width = 0; c.FacingMode = "" }, errors: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if got := len(cfg.Validate()); got != tc.errors {
				t.Errorf("Validate() = %d errors, want %d", got, tc.errors)
			}
		})
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "low", "quality": float64(50)}); err != nil {
		t.Fatalf("UpdateConfig error: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 320 || got.Quality != 50 {
		t.Errorf("config = %+v, want low preset with quality 50", got)
	}
	if applied != got {
		t.Error("OnConfigChange should receive the new config")
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("UpdateConfig should reject unknown preset")
	}

	if err := m.UpdateConfig(map[string]interface{}{"width": 10}); err == nil {
		t.Error("UpdateConfig should reject invalid width")
	}
	if m.GetConfig().Width != 320 {
		t.Error("invalid update must not be stored")
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := NewManager()
	m.OnConfigChange = func(cfg Config) error { return errors.New("push failed") }

	if err := m.SetConfig(DisabledConfig()); err == nil {
		t.Error("SetConfig should surface callback errors")
	}
}
