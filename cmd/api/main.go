package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediastudio/internal/adapter/repo"
	"mediastudio/internal/http/handlers"
	httpapi "mediastudio/internal/http/httpapi"
	"mediastudio/internal/infra"
	"mediastudio/internal/infra/credentials"
	"mediastudio/internal/infra/geoip"
	"mediastudio/internal/lineage"
	"mediastudio/internal/middleware"
	"mediastudio/internal/providers"
	"mediastudio/internal/providers/image"
	"mediastudio/internal/providers/video"
	"mediastudio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "api").Logger()

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	registry, err := newRegistry(ctx, cfg, credentials.NewStore(runner), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure providers")
	}

	files, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	signer, err := storage.NewSigner(cfg.SigningSecret, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure url signer")
	}
	lineageStore, err := repo.NewCachedLineageStore(repo.NewLineageRepository(runner), cfg.LineageCacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure lineage store")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		defer resolver.Close()
	}

	app := &handlers.App{
		Providers: registry,
		Requests:  repo.NewRequestRepository(runner),
		Lineage:   lineageStore,
		Blobs:     files,
		Files:     files,
		Signer:    signer.WithMaxExpiry(storage.ProviderExpiry),
		Verifier:  signer,
		Builder:   lineage.NewBuilder(&logger),
		Logger:    &logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := infra.NewHTTPServer(cfg, router, &logger)
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

// newRegistry builds both provider clients. Tokens missing from the
// environment are read from the integration_tokens table.
func newRegistry(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) (*providers.Registry, error) {
	replicateToken, err := creds.Resolve(ctx, credentials.ProviderReplicate, cfg.ReplicateAPIToken)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load replicate token from store")
	}
	runwayKey, err := creds.Resolve(ctx, credentials.ProviderRunway, cfg.RunwayAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load runway key from store")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
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
	return providers.NewRegistry(imageClient, videoClient), nil
}
