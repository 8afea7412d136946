package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"textgend/internal/generation"
	"textgend/pkg/types"
)

const (
	generationIDHeader = "X-Generation-Id"

	detailNoPrompt    = "No prompt provided in payload"
	detailInvalidJSON = "Invalid JSON body"
	detailNotLoaded   = "Model or tokenizer not loaded"
)

// handleGenerate serves POST /generate.
//
//	@Summary	Generate text from a prompt
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.GenerateRequest	true	"Prompt"
//	@Success	200		{object}	types.GenerateResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	415		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Router		/generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A missing Content-Type is read as JSON.
		ct := strings.TrimSpace(r.Header.Get("Content-Type"))
		if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// An oversized body also lands here; the size limit is not disclosed.
			writeJSONError(w, http.StatusBadRequest, detailInvalidJSON)
			return
		}
		log := requestLogger(r)
		if strings.TrimSpace(req.Prompt) == "" {
			log.Warn().Msg(detailNoPrompt)
			writeJSONError(w, http.StatusBadRequest, detailNoPrompt)
			return
		}

		genID := uuid.NewString()
		w.Header().Set(generationIDHeader, genID)
		log = log.With().Str("generation_id", genID).Logger()
		log.Info().Int("prompt_len", len(req.Prompt)).Msg("Prompt extracted")
		log.Debug().Str("prompt", req.Prompt).Msg("prompt")

		start := time.Now()
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if inferTimeout > 0 {
			var cancelT context.CancelFunc
			ctx, cancelT = context.WithTimeout(ctx, inferTimeout)
			defer cancelT()
		}
		text, err := svc.Generate(ctx, req.Prompt)
		elapsed := time.Since(start)
		defer func() {
			log.Info().Dur("dur", elapsed).Msgf("Total request time: %.2f seconds", elapsed.Seconds())
		}()

		if err != nil {
			// Client went away or the server is shutting down: nothing to write.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				log.Info().Err(err).Msg("generation abandoned")
				return
			}
			kind := generation.KindOf(err)
			observeGeneration(kind.String(), elapsed)
			status, detail, level := failureResponse(err)
			log.WithLevel(level).Err(err).Str("kind", kind.String()).Int("status", status).Msg(detail)
			writeJSONError(w, status, detail)
			return
		}
		observeGeneration("ok", elapsed)
		log.Debug().Str("generated_text", text).Msg("Response")
		writeJSON(w, http.StatusOK, types.GenerateResponse{
			GeneratedText: text,
			ResponseTime:  math.Round(elapsed.Seconds()*100) / 100,
		})
	}
}

// handleHealth serves GET /health.
//
//	@Summary	Readiness of the model and tokenizer
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health [get]
func handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready() {
			log := requestLogger(r)
			log.Info().Msg("Health check failed - " + detailNotLoaded)
			writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: types.StatusUnhealthy, Detail: detailNotLoaded})
			return
		}
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: types.StatusHealthy})
	}
}
