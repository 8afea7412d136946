package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Generation option names. They are read from the environment on every request.
const (
	EnvMaxLength         = "MAX_LENGTH"
	EnvMaxNewTokens      = "MAX_NEW_TOKENS"
	EnvTemperature       = "TEMPERATURE"
	EnvTopK              = "TOP_K"
	EnvTopP              = "TOP_P"
	EnvRepetitionPenalty = "REPETITION_PENALTY"
)

// GenerationEnvKeys lists the generation options in the order they are logged.
var GenerationEnvKeys = []string{
	EnvMaxLength,
	EnvMaxNewTokens,
	EnvTemperature,
	EnvTopK,
	EnvTopP,
	EnvRepetitionPenalty,
}

// Generation defaults.
const (
	DefaultMaxInputLength    = 512
	DefaultMaxNewTokens      = 30
	DefaultTemperature       = 0.3
	DefaultTopK              = 20
	DefaultTopP              = 0.9
	DefaultRepetitionPenalty = 1.1
)

// GenerationConfig is the sampling configuration for a single request.
type GenerationConfig struct {
	MaxInputLength    int
	MaxNewTokens      int
	Temperature       float64
	TopK              int
	TopP              float64
	RepetitionPenalty float64
}

// DefaultGeneration returns the configuration used when no option is set.
func DefaultGeneration() GenerationConfig {
	return GenerationConfig{
		MaxInputLength:    DefaultMaxInputLength,
		MaxNewTokens:      DefaultMaxNewTokens,
		Temperature:       DefaultTemperature,
		TopK:              DefaultTopK,
		TopP:              DefaultTopP,
		RepetitionPenalty: DefaultRepetitionPenalty,
	}
}

// ResolveGeneration derives a GenerationConfig from the six generation options.
// Unset or blank options fall back to defaults. Values are parsed but not range
// checked; the returned error names every option that failed to parse.
func ResolveGeneration(lookup LookupFunc) (GenerationConfig, error) {
	cfg := DefaultGeneration()
	var err error
	parseInt := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, perr := strconv.Atoi(strings.TrimSpace(v))
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("%s=%q: not an integer", key, v))
			return
		}
		*dst = n
	}
	parseFloat := func(key string, dst *float64) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("%s=%q: not a number", key, v))
			return
		}
		*dst = f
	}
	parseInt(EnvMaxLength, &cfg.MaxInputLength)
	parseInt(EnvMaxNewTokens, &cfg.MaxNewTokens)
	parseFloat(EnvTemperature, &cfg.Temperature)
	parseInt(EnvTopK, &cfg.TopK)
	parseFloat(EnvTopP, &cfg.TopP)
	parseFloat(EnvRepetitionPenalty, &cfg.RepetitionPenalty)
	if err != nil {
		return GenerationConfig{}, fmt.Errorf("invalid generation options: %w", err)
	}
	return cfg, nil
}

// LogGenerationEnv logs which generation options are set, one line per option.
func LogGenerationEnv(log zerolog.Logger, lookup LookupFunc) {
	log.Info().Msg("generation environment variables:")
	for _, key := range GenerationEnvKeys {
		if v, ok := lookup(key); ok {
			log.Info().Str("key", key).Msgf("%s=%s", key, v)
		} else {
			log.Info().Str("key", key).Msgf("%s is not set", key)
		}
	}
}
