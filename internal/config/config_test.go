package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %s, want %s", cfg.Port, DefaultPort)
	}
	if cfg.Firestore.Collection != "visionTests" {
		t.Errorf("Collection = %s, want visionTests", cfg.Firestore.Collection)
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".acuity")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := `{"port":"9000","ideal_min_m":0.25,"local_store":"sqlite","firestore":{"project_id":"from-file"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}

	// Run from an empty directory so no .env is picked up.
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ACUITY_PORT", "9100")
	t.Setenv("FIRESTORE_PROJECT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Port = %s, want env value 9100", cfg.Port)
	}
	if cfg.IdealMin != 0.25 {
		t.Errorf("IdealMin = %v, want file value 0.25", cfg.IdealMin)
	}
	if cfg.IdealMax != DefaultIdealMax {
		t.Errorf("IdealMax = %v, want default", cfg.IdealMax)
	}
	if cfg.LocalStore != StoreSQLite {
		t.Errorf("LocalStore = %s, want sqlite", cfg.LocalStore)
	}
	if cfg.Firestore.ProjectID != "from-file" {
		t.Errorf("ProjectID = %s, want from-file (empty env does not override)", cfg.Firestore.ProjectID)
	}
	if cfg.HistoryPath() != filepath.Join(dir, "history.db") {
		t.Errorf("HistoryPath = %s", cfg.HistoryPath())
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".env", []byte("ACUITY_IDEAL_MAX=0.6\nLOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Registered so the values godotenv sets are restored afterwards.
	t.Setenv("ACUITY_IDEAL_MAX", "")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("ACUITY_IDEAL_MAX")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdealMax != 0.6 {
		t.Errorf("IdealMax = %v, want 0.6 from .env", cfg.IdealMax)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug from .env", cfg.LogLevel)
	}
}

func TestLoad_BadFloat(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ACUITY_IDEAL_MIN", "close")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for a non-numeric distance")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0o644)

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should fail for malformed JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, true},
		{"zero min", func(c *Config) { c.IdealMin = 0 }, true},
		{"max below min", func(c *Config) { c.IdealMax = 0.2 }, true},
		{"unknown store", func(c *Config) { c.LocalStore = "postgres" }, true},
		{"no store needs no dir", func(c *Config) { c.LocalStore = StoreNone; c.DataDir = "" }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			errs := cfg.Validate()
			if hasErr := len(errs) > 0; hasErr != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}
