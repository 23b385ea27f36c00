package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/pixel-tracker/internal/pkg/httputil"
)

// RouteOptions configures middleware on the reporting API.
type RouteOptions struct {
	APIKey             string
	CORSAllowedOrigins []string
	RateLimitPerMinute int // 0 disables
}

// PixelMounter registers the public pixel route.
type PixelMounter interface {
	Mount(r chi.Router)
}

// SetupRoutes builds the full router. The pixel route, /health and /metrics
// are public and never rate limited; the reporting endpoints sit behind the
// API key and the per-IP limiter.
func SetupRoutes(h *Handlers, pixels PixelMounter, opts RouteOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)

	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, httputil.CodeInvalidArgument, "method not allowed")
	})

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	pixels.Mount(r)

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				opts.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					httputil.TooManyRequests(w)
				}),
			))
		}
		r.Use(RequireAPIKey(opts.APIKey))

		r.Post("/pixels", h.CreatePixel)
		r.Get("/status/{emailId}", h.GetStatus)
		r.Get("/opens/{pixelId}", h.GetOpens)
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/activity", h.GetActivity)
	})

	return r
}
