package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

func TestResolveGeneration_Defaults(t *testing.T) {
	cfg, err := ResolveGeneration(mapLookup(nil))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := GenerationConfig{MaxInputLength: 512, MaxNewTokens: 30, Temperature: 0.3, TopK: 20, TopP: 0.9, RepetitionPenalty: 1.1}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestResolveGeneration_Overrides(t *testing.T) {
	cfg, err := ResolveGeneration(mapLookup(map[string]string{
		EnvMaxLength:         "256",
		EnvMaxNewTokens:      " 50 ",
		EnvTemperature:       "0.7",
		EnvTopK:              "40",
		EnvTopP:              "0.95",
		EnvRepetitionPenalty: "1.2",
	}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := GenerationConfig{MaxInputLength: 256, MaxNewTokens: 50, Temperature: 0.7, TopK: 40, TopP: 0.95, RepetitionPenalty: 1.2}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestResolveGeneration_BlankFallsBack(t *testing.T) {
	cfg, err := ResolveGeneration(mapLookup(map[string]string{EnvTopK: "  "}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.TopK != DefaultTopK {
		t.Fatalf("top_k=%d", cfg.TopK)
	}
}

func TestResolveGeneration_NoRangeValidation(t *testing.T) {
	cfg, err := ResolveGeneration(mapLookup(map[string]string{EnvTemperature: "-3", EnvTopK: "0"}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Temperature != -3 || cfg.TopK != 0 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestResolveGeneration_MalformedNamesEveryOption(t *testing.T) {
	_, err := ResolveGeneration(mapLookup(map[string]string{
		EnvMaxNewTokens: "thirty",
		EnvTopP:         "high",
		EnvTopK:         "2.5",
	}))
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, key := range []string{EnvMaxNewTokens, EnvTopP, EnvTopK} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
	if n := len(multierr.Errors(errorsUnwrap(err))); n != 3 {
		t.Fatalf("expected 3 combined errors, got %d", n)
	}
}

func errorsUnwrap(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}
	return err
}

func TestLogGenerationEnv(t *testing.T) {
	var buf bytes.Buffer
	LogGenerationEnv(zerolog.New(&buf), mapLookup(map[string]string{EnvTopK: "40"}))
	out := buf.String()
	if !strings.Contains(out, "TOP_K=40") {
		t.Fatalf("missing set option: %s", out)
	}
	if !strings.Contains(out, "TEMPERATURE is not set") {
		t.Fatalf("missing unset option: %s", out)
	}
	if got := strings.Count(out, "\n"); got != len(GenerationEnvKeys)+1 {
		t.Fatalf("expected %d lines, got %d", len(GenerationEnvKeys)+1, got)
	}
}
