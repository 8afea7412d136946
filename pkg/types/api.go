package types

// GenerateRequest is the payload accepted by POST /generate.
type GenerateRequest struct {
	// Required prompt text to generate a completion for.
	// example: Once upon a time
	Prompt string `json:"prompt" example:"Once upon a time "`
}

// GenerateResponse is returned by POST /generate on success.
type GenerateResponse struct {
	// Decoded model output with special tokens removed.
	// example: Once upon a time there was a small village by the sea.
	GeneratedText string `json:"generated_text" example:"Once upon a time there was a small village by the sea."`
	// Wall-clock generation time in seconds, rounded to two decimals.
	// example: 0.42
	ResponseTime float64 `json:"response_time" example:"0.42"`
}

// ErrorResponse is the JSON body of every non-2xx response from /generate.
type ErrorResponse struct {
	// Human-readable failure description.
	// example: No prompt provided in payload
	Detail string `json:"detail" example:"No prompt provided in payload"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// healthy or unhealthy.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Reason the service is unhealthy. Omitted when healthy.
	// example: Model or tokenizer not loaded
	Detail string `json:"detail,omitempty" example:"Model or tokenizer not loaded"`
}

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)
