package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"textgend/internal/generation"
	"textgend/pkg/types"
)

// Detail prefixes for generation failures.
const (
	prefixInput      = "ValueError occurred: "
	prefixGeneration = "Model generation failed: "
	prefixUnexpected = "Unexpected error occurred: "
)

// failureResponse maps a generation error onto its status code, response
// detail and log level. Anything that is not an input or generation failure
// is unexpected and logged at the highest level.
func failureResponse(err error) (int, string, zerolog.Level) {
	switch generation.KindOf(err) {
	case generation.KindInput:
		return http.StatusBadRequest, prefixInput + err.Error(), zerolog.ErrorLevel
	case generation.KindGeneration:
		return http.StatusInternalServerError, prefixGeneration + err.Error(), zerolog.ErrorLevel
	default:
		return http.StatusInternalServerError, prefixUnexpected + err.Error(), zerolog.FatalLevel
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, types.ErrorResponse{Detail: detail})
}
