package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Package-level knobs set once by the serve command before NewMux.
var (
	maxBodyBytes = defaultMaxBodyBytes
	inferTimeout time.Duration
	corsConfig   *cors.Options // nil: CORS middleware not installed
)

// SetMaxBodyBytes limits /generate request bodies. n <= 0 restores 1 MiB.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// SetInferTimeoutSeconds bounds each generation. sec <= 0 disables the bound.
func SetInferTimeoutSeconds(sec int64) {
	inferTimeout = time.Duration(max(sec, 0)) * time.Second
}

// SetCORSOptions enables CORS for the given origins, methods and headers.
// Empty lists fall back to any origin, GET/POST/OPTIONS and Content-Type/Authorization.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	if !enabled {
		corsConfig = nil
		return
	}
	corsConfig = &cors.Options{
		AllowedOrigins: listOr(origins, "*"),
		AllowedMethods: listOr(methods, http.MethodGet, http.MethodPost, http.MethodOptions),
		AllowedHeaders: listOr(headers, "Content-Type", "Authorization"),
		ExposedHeaders: []string{generationIDHeader},
		MaxAge:         300,
	}
}

func listOr(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return append([]string(nil), v...)
}
