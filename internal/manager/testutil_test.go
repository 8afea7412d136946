package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"textgend/internal/generation"
)

// newFakeLlama serves the llama-server endpoints used by the backend client.
// Tokens are byte values; /completion appends "!".
func newFakeLlama(t *testing.T, healthy *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if healthy != nil && !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids := []int{}
		for _, b := range []byte(req.Content) {
			ids = append(ids, int(b))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": ids})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "!", "tokens": []int{'!'}})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int `json:"tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var b strings.Builder
		for _, id := range req.Tokens {
			b.WriteByte(byte(id))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": b.String()})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// createModelFile writes an empty artifact and returns its path.
func createModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

// echoBackend is an in-memory Tokenizer and Model.
type echoBackend struct{ suffix string }

func (e echoBackend) Encode(_ context.Context, text string, maxLength int) (generation.Encoding, error) {
	ids := []int{}
	for _, r := range text {
		ids = append(ids, int(r))
	}
	if len(ids) > maxLength {
		ids = ids[:maxLength]
	}
	return generation.Encoding{InputIDs: ids}, nil
}

func (e echoBackend) Generate(_ context.Context, in generation.Encoding, _ generation.SamplingParams) ([]int, error) {
	out := append([]int(nil), in.InputIDs...)
	for _, r := range e.suffix {
		out = append(out, int(r))
	}
	return out, nil
}

func (e echoBackend) Decode(_ context.Context, ids []int, _ bool) (string, error) {
	rs := make([]rune, len(ids))
	for i, id := range ids {
		rs[i] = rune(id)
	}
	return string(rs), nil
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
