package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/amirhf/imageSearch/services/gallery-go/config"
	"github.com/amirhf/imageSearch/services/gallery-go/observability"
)

// NewRouter wires the handler's routes and the shared middleware stack.
func NewRouter(h *Handler, cfg config.Config, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(observability.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.GetSession)
		r.Post("/session/connect", h.Connect)

		r.Group(func(r chi.Router) {
			if cfg.Search.RateLimit > 0 {
				r.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.Search.RateLimit), cfg.Search.Burst)))
			}
			r.Post("/search/text", h.TextSearch)
			r.Post("/search/image", h.ImageSearch)
			r.Post("/search/similar", h.FindSimilar)
			r.Post("/search/reset", h.Reset)
			r.Post("/search/more", h.LoadMore)
		})

		r.Post("/select", h.Select)
		r.Delete("/select", h.Dismiss)
		r.Get("/debug", h.Debug)
		r.Get("/theme", h.GetTheme)
		r.Put("/theme", h.PutTheme)
		r.Get("/history", h.History)
	})
	return r
}

// RequestLogger logs one line per request with its chi request id.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("request")
				return
			}
			entry.Info("request")
		})
	}
}

// RateLimit rejects requests beyond the limiter's budget with 429.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				observability.RateLimitRejectedTotal.Inc()
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many searches, please slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
