package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// takenAtLayout is fixed-width so that text ordering matches time ordering.
const takenAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteSink stores records in a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS vision_tests (
		id            TEXT PRIMARY KEY,
		taken_at      TEXT NOT NULL,
		right_eye     TEXT NOT NULL,
		left_eye      TEXT NOT NULL,
		right_logmar  DOUBLE NOT NULL,
		left_logmar   DOUBLE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vision_tests_taken_at ON vision_tests(taken_at);
`

// NewSQLiteSink opens (creating if needed) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Append inserts rec.
func (s *SQLiteSink) Append(ctx context.Context, rec Record) (Receipt, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.When.IsZero() {
		rec.When = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vision_tests (id, taken_at, right_eye, left_eye, right_logmar, left_logmar)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.When.UTC().Format(takenAtLayout), rec.RightEye, rec.LeftEye, rec.RightLogMAR, rec.LeftLogMAR,
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("insert vision test: %w", err)
	}

	return Receipt{ID: rec.ID, Local: true}, nil
}

// List returns all records, newest first.
func (s *SQLiteSink) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, taken_at, right_eye, left_eye, right_logmar, left_logmar
		 FROM vision_tests ORDER BY taken_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query vision tests: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var takenAt string
		if err := rows.Scan(&rec.ID, &takenAt, &rec.RightEye, &rec.LeftEye, &rec.RightLogMAR, &rec.LeftLogMAR); err != nil {
			return nil, fmt.Errorf("scan vision test: %w", err)
		}
		if rec.When, err = time.Parse(takenAtLayout, takenAt); err != nil {
			return nil, fmt.Errorf("parse taken_at %q: %w", takenAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
