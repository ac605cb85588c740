package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-records/internal/api"
	"github.com/hackgods/practice-records/internal/config"
	"github.com/hackgods/practice-records/internal/logging"
	"github.com/hackgods/practice-records/internal/metrics"
	"github.com/hackgods/practice-records/internal/practice"
	redisclient "github.com/hackgods/practice-records/internal/redis"
	"github.com/hackgods/practice-records/internal/snapshot"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.New("prod", "info")
		l.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("backend", cfg.SnapshotBackend).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(rootCtx, 10*time.Second)
	backend, err := snapshot.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.SnapshotBackend).Msg("snapshot backend error")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing snapshot backend")
		}
	}()

	if rb, ok := backend.(*snapshot.RedisBackend); ok {
		release := holdWriterLease(rootCtx, stop, logger, rb, cfg)
		defer release()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := practice.NewStore(backend,
		practice.WithLogger(logger.With().Str("component", "store").Logger()),
		practice.WithObserver(metrics.New(reg)),
	)
	if res := store.Restore(rootCtx); res.Err != nil {
		logger.Warn().Err(res.Err).Msg("continuing with an empty store")
	}

	srv := newServer(cfg, store, reg, logger)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

func newServer(cfg config.Config, store *practice.Store, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	return &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Store:    store,
			Logger:   logger,
			Gatherer: reg,
			Env:      cfg.Env,
			Version:  version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// holdWriterLease makes this process the only writer of the shared Redis
// document. Losing the lease stops the server.
func holdWriterLease(ctx context.Context, stop context.CancelFunc, logger zerolog.Logger, rb *snapshot.RedisBackend, cfg config.Config) func() {
	lease, err := redisclient.AcquireWriterLease(ctx, rb.Client(), cfg.SnapshotName, cfg.LeaseTTL)
	if err != nil {
		logger.Fatal().Err(err).Str("key", redisclient.LeaseKey(cfg.SnapshotName)).Msg("writer lease error")
	}

	go func() {
		if err := lease.Keep(ctx); err != nil {
			logger.Error().Err(err).Msg("writer lease lost, stopping")
			stop()
		}
	}()

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Error().Err(err).Msg("error releasing writer lease")
		}
	}
}
