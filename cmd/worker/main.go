package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediastudio/internal/adapter/repo"
	"mediastudio/internal/infra"
	"mediastudio/internal/infra/credentials"
	"mediastudio/internal/orchestrator"
	"mediastudio/internal/providers"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/video"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	registry, err := newRegistry(ctx, cfg, credentials.NewStore(runner), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure providers")
	}

	store, err := repo.NewCachedLineageStore(repo.NewLineageRepository(runner), cfg.LineageCacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure lineage store")
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Providers:          registry,
		Store:              store,
		Logger:             &logger,
		Observer:           orchestrator.DefaultMetrics(),
		PollInterval:       cfg.PollInterval,
		PollTimeout:        cfg.PollTimeout,
		MaxTransientErrors: cfg.PollMaxTransientErrors,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure orchestrator")
	}

	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	w := &jobWorker{
		requests:    repo.NewRequestRepository(runner),
		runner:      orch,
		logger:      logger,
		concurrency: cfg.WorkerConcurrency,
		idle:        cfg.WorkerIdleInterval,
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// newRegistry builds both provider clients. Tokens missing from the
// environment are read from the integration_tokens table.
func newRegistry(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) (*providers.Registry, error) {
	replicateToken, err := creds.Resolve(ctx, credentials.ProviderReplicate, cfg.ReplicateAPIToken)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load replicate token from store")
	}
	runwayKey, err := creds.Resolve(ctx, credentials.ProviderRunway, cfg.RunwayAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load runway key from store")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	imageClient, err := image.NewClient(image.Options{
		APIToken:   replicateToken,
		BaseURL:    cfg.ReplicateBaseURL,
		Model:      cfg.ReplicateModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	videoClient, err := video.NewClient(video.Options{
		APIKey:     runwayKey,
		BaseURL:    cfg.RunwayBaseURL,
		APIVersion: cfg.RunwayAPIVersion,
		Model:      cfg.RunwayModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if replicateToken == "" || runwayKey == "" {
		logger.Warn().Bool("replicate", replicateToken != "").Bool("runway", runwayKey != "").Msg("worker: provider credentials missing; submits will fail")
	}
	return providers.NewRegistry(imageClient, videoClient), nil
}
