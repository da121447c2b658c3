package history

import (
	"context"
	"fmt"
	"log/slog"
)

// FallbackError aggregates a failed remote write and a failed local write.
type FallbackError struct {
	Remote error
	Local  error
}

// Error implements the error interface.
func (e *FallbackError) Error() string {
	if e.Remote == nil {
		return fmt.Sprintf("history: local save failed: %v", e.Local)
	}
	return fmt.Sprintf("history: remote save failed (%v), local save failed: %v", e.Remote, e.Local)
}

// Unwrap returns the local error, the last one tried.
func (e *FallbackError) Unwrap() error {
	return e.Local
}

// Fallback writes to Remote and falls back to Local on failure. A nil
// Remote writes straight to Local.
type Fallback struct {
	Remote Sink
	Local  Sink
	logger *slog.Logger
}

// NewFallback creates a fallback sink. remote may be nil.
func NewFallback(remote, local Sink) *Fallback {
	return &Fallback{
		Remote: remote,
		Local:  local,
		logger: slog.Default().With("component", "history.fallback"),
	}
}

// WithLogger sets the logger.
func (f *Fallback) WithLogger(logger *slog.Logger) *Fallback {
	f.logger = logger.With("component", "history.fallback")
	return f
}

// Append implements Sink.
func (f *Fallback) Append(ctx context.Context, rec Record) (Receipt, error) {
	var remoteErr error

	if f.Remote != nil {
		receipt, err := f.Remote.Append(ctx, rec)
		if err == nil {
			return receipt, nil
		}
		remoteErr = err
		f.logger.Warn("remote save failed, falling back to local",
			"record_id", rec.ID,
			"error", err,
		)
	}

	if f.Local == nil {
		if remoteErr == nil {
			return Receipt{}, ErrNotConfigured
		}
		return Receipt{}, remoteErr
	}

	receipt, err := f.Local.Append(ctx, rec)
	if err != nil {
		return Receipt{}, &FallbackError{Remote: remoteErr, Local: err}
	}
	receipt.Local = true
	return receipt, nil
}
