package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mediastudio/internal/http/handlers"
	"mediastudio/internal/middleware"
)

// Options configures the middleware stack around the handlers.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	// Metrics serves /metrics. Nil uses the default Prometheus registry.
	Metrics http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.UserID,
	)
	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.With(limited).Post("/v1/providers/image", app.SubmitImage)
	r.Get("/v1/providers/image/{id}", app.ImageStatus)
	r.With(limited).Post("/v1/providers/video", app.SubmitVideo)
	r.Get("/v1/providers/video/{id}", app.VideoStatus)

	r.With(limited).Post("/v1/generations", app.CreateGeneration)
	r.Get("/v1/generations/{id}", app.GetGeneration)

	r.Get("/v1/lineages/{lineage_id}/timeline", app.Timeline)
	r.Get("/v1/storage/{bucket}/*", app.Download)

	return r
}
