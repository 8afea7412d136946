package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"textgend/internal/config"
	"textgend/internal/manager"
)

func fakeLlamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
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
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": []int{'.'}})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int `json:"tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b := make([]byte, len(req.Tokens))
		for i, id := range req.Tokens {
			b[i] = byte(id)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": string(b)})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(llamaURL string) config.Config {
	cfg := config.Config{Addr: "127.0.0.1:0", LlamaURL: llamaURL, StartupTimeoutSeconds: 2}
	cfg.ApplyDefaults()
	return cfg
}

func TestRunServe_ServesAndShutsDown(t *testing.T) {
	llama := fakeLlamaServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, testConfig(llama.URL), zerolog.Nop(), mapLookup(nil), ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d", resp.StatusCode)
	}

	resp, err = http.Post("http://"+addr+"/generate", "application/json", strings.NewReader(`{"prompt":"Hi"}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var body struct {
		GeneratedText string `json:"generated_text"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || body.GeneratedText != "Hi." {
		t.Fatalf("generate status=%d text=%q", resp.StatusCode, body.GeneratedText)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServe_MalformedGenerationOption(t *testing.T) {
	err := runServe(context.Background(), testConfig("http://127.0.0.1:1"), zerolog.Nop(), mapLookup(map[string]string{"TEMPERATURE": "hot"}), nil)
	if err == nil || !strings.Contains(err.Error(), "TEMPERATURE") {
		t.Fatalf("expected TEMPERATURE error, got %v", err)
	}
}

func TestRunServe_LoadFailure(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.StartupTimeoutSeconds = 1
	err := runServe(context.Background(), cfg, zerolog.Nop(), mapLookup(nil), nil)
	if !manager.IsStartupFailure(err) {
		t.Fatalf("expected startup failure, got %v", err)
	}
}
