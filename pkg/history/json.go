package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JSONSink stores records in a single JSON file.
type JSONSink struct {
	path    string
	records []Record
	mu      sync.RWMutex
}

// jsonData is the on-disk structure.
type jsonData struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Records   []Record `json:"records"`
}

const currentVersion = 1

// NewJSONSink opens the store at path. The file is created on first append.
func NewJSONSink(path string) (*JSONSink, error) {
	s := &JSONSink{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return s, nil
}

func (s *JSONSink) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored jsonData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	s.records = stored.Records
	return nil
}

// save writes the file via temp file + rename. Caller holds the lock.
func (s *JSONSink) save() error {
	stored := jsonData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Records:   s.records,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Append adds rec and writes the file.
func (s *JSONSink) Append(ctx context.Context, rec Record) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.When.IsZero() {
		rec.When = time.Now().UTC()
	}

	s.records = append(s.records, rec)
	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return Receipt{}, err
	}

	return Receipt{ID: rec.ID, Local: true}, nil
}

// List returns all records, newest first.
func (s *JSONSink) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].When.After(out[j].When)
	})
	return out, nil
}
