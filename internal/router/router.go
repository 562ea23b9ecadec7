package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pack-portal/internal/config"
	"pack-portal/internal/handler"
	"pack-portal/internal/middleware"
)

type Handlers struct {
	Claim    *handler.ClaimHandler
	Download *handler.DownloadHandler
	Pack     *handler.PackHandler
	Line     *handler.LineHandler
	Stats    *handler.StatsHandler
	Health   *handler.HealthHandler
	Docs     *handler.DocsHandler
}

func New(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.ClaimRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		// Streams are bounded by StreamingTimeout; TimeoutHandler would buffer them.
		api.With(middleware.StreamingTimeout(cfg.DownloadMaxDuration, cfg.DownloadIdleTimeout)).
			Post("/download", h.Download.Download)

		api.Group(func(jsonAPI chi.Router) {
			jsonAPI.Use(middleware.Timeout(cfg.RequestTimeout))

			jsonAPI.Post("/claim", h.Claim.Claim)
			jsonAPI.Get("/verify-token", h.Download.VerifyToken)
			jsonAPI.Get("/packs", h.Pack.List)
			jsonAPI.Get("/packs/{id}", h.Pack.Get)
			jsonAPI.Get("/line/webhook", h.Line.Status)
			jsonAPI.Post("/line/webhook", h.Line.Webhook)

			if cfg.AdminKeyHash != "" {
				jsonAPI.With(middleware.AdminKey(cfg.AdminKeyHash)).Get("/admin/stats", h.Stats.Summary)
			}
		})
	})

	return r
}
