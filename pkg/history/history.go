// Package history persists finished test sessions.
//
// Callers depend only on the Sink capability. FirestoreSink is the remote
// implementation; JSONSink and SQLiteSink are local ones. Fallback chains a
// remote sink with a local one, and Recorder makes appends fire-and-forget.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-acuity/pkg/scoring"
)

// ErrNotConfigured is returned by a sink that lacks required settings.
var ErrNotConfigured = errors.New("history: sink not configured")

// Record is one finished session.
type Record struct {
	ID          string    `json:"id"`
	When        time.Time `json:"when"`
	RightEye    string    `json:"rightEye"`
	LeftEye     string    `json:"leftEye"`
	RightLogMAR float64   `json:"rightLogmar"`
	LeftLogMAR  float64   `json:"leftLogmar"`
}

// NewRecord builds a record from a summary, stamped with when.
func NewRecord(when time.Time, s scoring.Summary) Record {
	return Record{
		ID:          uuid.New().String(),
		When:        when.UTC(),
		RightEye:    s.Right.Acuity,
		LeftEye:     s.Left.Acuity,
		RightLogMAR: s.Right.LogMAR,
		LeftLogMAR:  s.Left.LogMAR,
	}
}

// Receipt reports where a record ended up.
type Receipt struct {
	ID    string `json:"id"`
	Local bool   `json:"local"`
}

// Sink appends records.
type Sink interface {
	Append(ctx context.Context, rec Record) (Receipt, error)
}

// Lister reads records back, newest first.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) (Receipt, error)

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, rec Record) (Receipt, error) {
	return f(ctx, rec)
}
