package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-acuity/internal/config"
	"github.com/teslashibe/go-acuity/internal/httpc"
	"github.com/teslashibe/go-acuity/pkg/history"
)

// openHistory builds the record sink: Firestore when a project is
// configured, falling back to the local store. The lister is the local
// store, or nil when there is none.
func openHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) (history.Sink, history.Lister, func(), error) {
	var (
		local  history.Sink
		lister history.Lister
		remote history.Sink
	)
	closeFn := func() {}

	switch cfg.LocalStore {
	case config.StoreJSON:
		s, err := history.NewJSONSink(cfg.HistoryPath())
		if err != nil {
			return nil, nil, closeFn, fmt.Errorf("open %s: %w", cfg.HistoryPath(), err)
		}
		local, lister = s, s
	case config.StoreSQLite:
		s, err := history.NewSQLiteSink(cfg.HistoryPath())
		if err != nil {
			return nil, nil, closeFn, fmt.Errorf("open %s: %w", cfg.HistoryPath(), err)
		}
		local, lister = s, s
		closeFn = func() { s.Close() }
	}

	if cfg.Firestore.ProjectID != "" {
		s, err := history.NewFirestoreSink(ctx, history.FirestoreConfig{
			ProjectID:       cfg.Firestore.ProjectID,
			Database:        cfg.Firestore.Database,
			Collection:      cfg.Firestore.Collection,
			CredentialsFile: cfg.Firestore.CredentialsFile,
			HTTPClient:      httpc.Client,
		})
		if err != nil {
			logger.Warn("remote history disabled", "error", err)
		} else {
			remote = s
		}
	}

	logger.Info("history",
		"local", cfg.LocalStore,
		"path", cfg.HistoryPath(),
		"remote", remote != nil,
	)

	if local == nil && remote == nil {
		return nil, nil, closeFn, nil
	}
	return history.NewFallback(remote, local).WithLogger(logger), lister, closeFn, nil
}
