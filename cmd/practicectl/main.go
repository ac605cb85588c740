package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hackgods/practice-records/internal/config"
	"github.com/hackgods/practice-records/internal/logging"
	"github.com/hackgods/practice-records/internal/practice"
	"github.com/hackgods/practice-records/internal/snapshot"
)

func main() {
	if err := newRootCmd(openConfigured).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openConfigured restores the store from the backend named by the
// environment. The CLI never writes, so the backend is only read.
func openConfigured(ctx context.Context) (*practice.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	backend, err := snapshot.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.SnapshotBackend, err)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("component", "practicectl").Logger()
	store := practice.NewStore(backend, practice.WithLogger(logger))
	if res := store.Restore(ctx); res.Err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("restore snapshot: %w", res.Err)
	}
	return store, func() { _ = backend.Close() }, nil
}
