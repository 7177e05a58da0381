package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	SigningSecret      string
	StoragePath        string
	StorageBaseURL     string
	CORSAllowedOrigins []string
	GeoIPDBPath        string
	DefaultLocale      string

	ReplicateAPIToken string
	ReplicateBaseURL  string
	ReplicateModel    string
	RunwayAPIKey      string
	RunwayBaseURL     string
	RunwayAPIVersion  string
	RunwayModel       string

	PollInterval           time.Duration
	PollTimeout            time.Duration
	PollMaxTransientErrors int
	WorkerConcurrency      int
	WorkerIdleInterval     time.Duration
	LineageCacheSize       int
	WorkerMetricsAddr      string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SigningSecret:      os.Getenv("SIGNING_SECRET"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/v1/storage"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		ReplicateModel:    getEnv("REPLICATE_MODEL", "black-forest-labs/flux-kontext-pro"),
		RunwayAPIKey:      os.Getenv("RUNWAY_API_KEY"),
		RunwayBaseURL:     getEnv("RUNWAY_BASE_URL", "https://api.dev.runwayml.com/v1"),
		RunwayAPIVersion:  getEnv("RUNWAY_API_VERSION", "2024-11-06"),
		RunwayModel:       getEnv("RUNWAY_MODEL", "gen4_turbo"),

		PollInterval:           time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		PollTimeout:            time.Second * time.Duration(getEnvInt("POLL_TIMEOUT_SECONDS", 600)),
		PollMaxTransientErrors: getEnvInt("POLL_MAX_TRANSIENT_ERRORS", 3),
		WorkerConcurrency:      getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerIdleInterval:     time.Millisecond * time.Duration(getEnvInt("WORKER_IDLE_INTERVAL_MS", 2000)),
		LineageCacheSize:       getEnvInt("LINEAGE_CACHE_SIZE", 256),
		WorkerMetricsAddr:      getEnv("WORKER_METRICS_ADDR", ":9091"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("SIGNING_SECRET is required")
	}

	if cfg.PollInterval <= 0 || cfg.PollTimeout <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS and POLL_TIMEOUT_SECONDS must be positive")
	}

	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
