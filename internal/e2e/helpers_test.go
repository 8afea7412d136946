package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"textgend/internal/httpapi"
	"textgend/internal/manager"
)

// fakeLlama serves the llama-server API. Tokens are byte values. status, when
// non-zero, is returned by /completion together with an error message.
type fakeLlama struct {
	status  int
	message string
}

func (f *fakeLlama) start(t *testing.T) *httptest.Server {
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
		if f.status != 0 {
			w.WriteHeader(f.status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": f.status, "message": f.message}})
			return
		}
		var req struct {
			NPredict int `json:"n_predict"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		toks := []int{}
		for i := 0; i < req.NPredict && i < 3; i++ {
			toks = append(toks, '!')
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": toks})
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

// newServer loads a manager against llamaURL and serves it over httptest.
func newServer(t *testing.T, llamaURL string, env map[string]string) (*httptest.Server, *manager.Manager) {
	t.Helper()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		LlamaURL:       llamaURL,
		HealthInterval: 10 * time.Millisecond,
		Lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	return e.Detail
}
