package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	// Generate returns the generated text or a *generation.Failure.
	Generate(ctx context.Context, prompt string) (string, error)
	// Ready reports whether a model and tokenizer are attached.
	Ready() bool
}

// NewMux builds the router serving the generation API.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsConfig != nil {
		r.Use(cors.Handler(*corsConfig))
	}
	r.Use(MetricsMiddleware)

	r.Post("/generate", handleGenerate(svc))
	r.Get("/health", handleHealth(svc))
	MountSwagger(r)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
