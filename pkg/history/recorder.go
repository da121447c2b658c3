package history

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWriteTimeout bounds a single background append.
const DefaultWriteTimeout = 15 * time.Second

// Recorder appends records in the background. Record never blocks the
// caller and failures are only logged.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup

	// OnSaved is called after each append attempt, if set.
	OnSaved func(rec Record, receipt Receipt, err error)
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		sink:    sink,
		timeout: DefaultWriteTimeout,
		logger:  logger.With("component", "history.recorder"),
	}
}

// SetTimeout changes the per-write timeout.
func (r *Recorder) SetTimeout(d time.Duration) {
	r.timeout = d
}

// Record starts an append of rec and returns immediately.
func (r *Recorder) Record(rec Record) {
	if r == nil || r.sink == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		receipt, err := r.sink.Append(ctx, rec)
		if err != nil {
			r.logger.Warn("failed to save vision test", "record_id", rec.ID, "error", err)
		} else {
			r.logger.Info("vision test saved", "record_id", receipt.ID, "local", receipt.Local)
		}

		if r.OnSaved != nil {
			r.OnSaved(rec, receipt, err)
		}
	}()
}

// Wait blocks until all pending appends finish.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
