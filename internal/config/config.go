// Package config loads settings for the acuity commands.
//
// Sources are applied in order, later ones winning: built-in defaults,
// ~/.acuity/config.json, a .env file in the working directory, then the
// process environment. Commands apply their flags last.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultPort       = "8080"
	DefaultIdealMin   = 0.30
	DefaultIdealMax   = 0.50
	DefaultLocalStore = StoreJSON
	DefaultModelPath  = "models/face_detection_yunet.onnx"
	DefaultLogLevel   = "info"
	DefaultCollection = "visionTests"
)

// Local store kinds.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreNone   = "none"
)

// Firestore holds remote history settings. An empty ProjectID disables
// remote saves.
type Firestore struct {
	ProjectID       string `json:"project_id"`
	Database        string `json:"database,omitempty"`
	Collection      string `json:"collection"`
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// Config is the full runtime configuration.
type Config struct {
	Port       string    `json:"port"`
	IdealMin   float64   `json:"ideal_min_m"`
	IdealMax   float64   `json:"ideal_max_m"`
	DataDir    string    `json:"data_dir"`
	LocalStore string    `json:"local_store"`
	ModelPath  string    `json:"model_path"`
	StaticDir  string    `json:"static_dir,omitempty"`
	LogLevel   string    `json:"log_level"`
	Firestore  Firestore `json:"firestore"`
}

// Default returns the built-in configuration. DataDir is ~/.acuity, or
// .acuity when the home directory is unknown.
func Default() Config {
	dataDir := ".acuity"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".acuity")
	}
	return Config{
		Port:       DefaultPort,
		IdealMin:   DefaultIdealMin,
		IdealMax:   DefaultIdealMax,
		DataDir:    dataDir,
		LocalStore: DefaultLocalStore,
		ModelPath:  DefaultModelPath,
		LogLevel:   DefaultLogLevel,
		Firestore:  Firestore{Collection: DefaultCollection},
	}
}

// Load builds the configuration from every source.
func Load() (Config, error) {
	cfg := Default()

	if err := cfg.mergeFile(filepath.Join(cfg.DataDir, "config.json")); err != nil {
		return cfg, err
	}

	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads a JSON config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	err := cfg.mergeFile(path)
	return cfg, err
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "ACUITY_PORT")
	setString(&c.DataDir, "ACUITY_DATA_DIR")
	setString(&c.LocalStore, "ACUITY_LOCAL_STORE")
	setString(&c.ModelPath, "ACUITY_MODEL_PATH")
	setString(&c.StaticDir, "ACUITY_STATIC_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Firestore.ProjectID, "FIRESTORE_PROJECT_ID")
	setString(&c.Firestore.Database, "FIRESTORE_DATABASE")
	setString(&c.Firestore.Collection, "FIRESTORE_COLLECTION")
	setString(&c.Firestore.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	if err := setFloat(&c.IdealMin, "ACUITY_IDEAL_MIN"); err != nil {
		return err
	}
	return setFloat(&c.IdealMax, "ACUITY_IDEAL_MAX")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// Validate returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "port is required")
	} else if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %q", c.Port))
	}

	if c.IdealMin <= 0 {
		errors = append(errors, "ideal min distance must be positive")
	}
	if c.IdealMax <= c.IdealMin {
		errors = append(errors, "ideal max distance must be greater than min")
	}

	switch c.LocalStore {
	case StoreJSON, StoreSQLite, StoreNone:
	default:
		errors = append(errors, fmt.Sprintf("local store must be %s, %s or %s", StoreJSON, StoreSQLite, StoreNone))
	}

	if c.LocalStore != StoreNone && c.DataDir == "" {
		errors = append(errors, "data dir is required for local history")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level %q", c.LogLevel))
	}

	return errors
}

// HistoryPath returns the local history file for the configured store.
func (c *Config) HistoryPath() string {
	if c.LocalStore == StoreSQLite {
		return filepath.Join(c.DataDir, "history.db")
	}
	return filepath.Join(c.DataDir, "history.json")
}
