// Package llamaserver implements the generation Tokenizer and Model on top of a
// llama.cpp server, reached over its native HTTP API (/tokenize, /completion,
// /detokenize, /health). It can also supervise a llama-server child process.
package llamaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"textgend/internal/generation"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// RequestTimeout bounds each backend call. Zero disables it.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// Client talks to a running llama-server.
type Client struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client

	mu            sync.RWMutex
	specialPrefix []int // ids the tokenizer prepends on its own (e.g. BOS)
}

var (
	_ generation.Tokenizer = (*Client)(nil)
	_ generation.Model     = (*Client)(nil)
)

// New constructs a Client.
func New(opts Options) *Client {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays zero: deadlines travel on the request context.
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		reqTimeout: opts.RequestTimeout,
		httpClient: &http.Client{Transport: tr},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type tokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

type detokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

// completionRequest is the subset of the /completion payload we send.
// The prompt is given as token ids so the server does not re-tokenize.
type completionRequest struct {
	Prompt        []int   `json:"prompt"`
	NPredict      int     `json:"n_predict"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	Stream        bool    `json:"stream"`
	ReturnTokens  bool    `json:"return_tokens"`
	CachePrompt   bool    `json:"cache_prompt"`
}

type completionResponse struct {
	Content         string `json:"content"`
	Tokens          []int  `json:"tokens"`
	Stop            bool   `json:"stop"`
	TokensPredicted int    `json:"tokens_predicted"`
}

// Health returns nil once the server has finished loading its model.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("llama-server health status %d", resp.StatusCode)
	}
	return nil
}

// Warmup learns which ids the tokenizer adds by itself so Decode can drop them.
func (c *Client) Warmup(ctx context.Context) error {
	var out tokenizeResponse
	if err := c.post(ctx, "/tokenize", tokenizeRequest{Content: "", AddSpecial: true}, &out); err != nil {
		return fmt.Errorf("warmup tokenize: %w", err)
	}
	c.mu.Lock()
	c.specialPrefix = append([]int(nil), out.Tokens...)
	c.mu.Unlock()
	return nil
}

// Encode tokenizes text and keeps the first maxLength ids.
// Batch size is one, so the attention mask is all ones and nothing is padded.
func (c *Client) Encode(ctx context.Context, text string, maxLength int) (generation.Encoding, error) {
	var out tokenizeResponse
	if err := c.post(ctx, "/tokenize", tokenizeRequest{Content: text, AddSpecial: true}, &out); err != nil {
		return generation.Encoding{}, err
	}
	ids := out.Tokens
	if maxLength > 0 && len(ids) > maxLength {
		ids = ids[:maxLength]
	}
	mask := make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return generation.Encoding{InputIDs: ids, AttentionMask: mask}, nil
}

// Generate samples up to p.MaxNewTokens ids after the prompt and returns the
// prompt ids followed by the new ids.
func (c *Client) Generate(ctx context.Context, in generation.Encoding, p generation.SamplingParams) ([]int, error) {
	if p.NumReturnSequences > 1 {
		return nil, generation.UnexpectedError(fmt.Errorf("llama-server returns one sequence, %d requested", p.NumReturnSequences))
	}
	temp := p.Temperature
	if !p.DoSample {
		temp = 0
	}
	payload := completionRequest{
		Prompt:        in.InputIDs,
		NPredict:      p.MaxNewTokens,
		Temperature:   temp,
		TopK:          p.TopK,
		TopP:          p.TopP,
		RepeatPenalty: p.RepetitionPenalty,
		ReturnTokens:  true,
	}
	var out completionResponse
	if err := c.post(ctx, "/completion", payload, &out); err != nil {
		return nil, err
	}
	gen := out.Tokens
	if len(gen) == 0 && out.Content != "" {
		// Older servers ignore return_tokens.
		var tk tokenizeResponse
		if err := c.post(ctx, "/tokenize", tokenizeRequest{Content: out.Content}, &tk); err != nil {
			return nil, err
		}
		gen = tk.Tokens
	}
	seq := make([]int, 0, len(in.InputIDs)+len(gen))
	seq = append(seq, in.InputIDs...)
	return append(seq, gen...), nil
}

// Decode renders ids as text. With skipSpecial the ids the tokenizer prepends
// on its own are removed first.
func (c *Client) Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error) {
	if skipSpecial {
		ids = c.stripSpecialPrefix(ids)
	}
	if len(ids) == 0 {
		return "", nil
	}
	var out detokenizeResponse
	if err := c.post(ctx, "/detokenize", detokenizeRequest{Tokens: ids}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) stripSpecialPrefix(ids []int) []int {
	c.mu.RLock()
	prefix := c.specialPrefix
	c.mu.RUnlock()
	if len(prefix) == 0 || len(ids) < len(prefix) {
		return ids
	}
	for i, id := range prefix {
		if ids[i] != id {
			return ids
		}
	}
	return ids[len(prefix):]
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// post sends a JSON request and decodes the JSON reply into out.
// A 400 reply is an input failure; any other failure is a generation failure.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	body, err := json.Marshal(in)
	if err != nil {
		return generation.UnexpectedError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return generation.UnexpectedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return generation.GenerationError(fmt.Errorf("llama-server %s: %w", path, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := readHTTPError(path, resp)
		if IsHTTPStatus(herr, http.StatusBadRequest) {
			return generation.InputError(herr)
		}
		return generation.GenerationError(herr)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return generation.GenerationError(fmt.Errorf("llama-server %s: decode response: %w", path, err))
	}
	return nil
}

// HTTPError is a non-2xx reply from llama-server.
type HTTPError struct {
	Path    string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("llama-server %s: status %d", e.Path, e.Status)
}

// StatusCode returns the HTTP status reported by llama-server.
func (e *HTTPError) StatusCode() int { return e.Status }

func readHTTPError(path string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	herr := &HTTPError{Path: path, Status: resp.StatusCode}
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil && len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
			herr.Message = nested.Message
		case json.Unmarshal(payload.Error, &flat) == nil && flat != "":
			herr.Message = flat
		}
	}
	if herr.Message == "" {
		herr.Message = strings.TrimSpace(string(b))
	}
	return herr
}

// IsHTTPStatus reports whether err is an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode() == status
}
