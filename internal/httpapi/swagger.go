package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"textgend/internal/apidocs"
)

// MountSwagger serves the OpenAPI document at /openapi.yaml and Swagger UI at /docs.
func MountSwagger(r chi.Router) {
	if err := apidocs.Register(); err != nil {
		zlog.Error().Err(err).Msg("openapi document not registered; /docs/doc.json unavailable")
	}
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(apidocs.OpenAPIYAML)
	})
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
		httpSwagger.DocExpansion("list"),
	))
}
