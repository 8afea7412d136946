package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultAddr                   = ":8000"
	DefaultModelDirPath           = "./model"
	DefaultModelsRoot             = "./models"
	DefaultLlamaHost              = "127.0.0.1"
	DefaultStartupTimeoutSeconds  = 120
	DefaultBackendTimeoutSeconds  = 300
	DefaultShutdownTimeoutSeconds = 30
	DefaultMaxBodyBytes           = 1 << 20
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "json"
)

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Environment variables read by ApplyEnv. MODEL_DIR_PATH and MODEL_DIR_NAME keep
// their historical unprefixed names.
const (
	EnvAddr         = "TEXTGEND_ADDR"
	EnvModelDirPath = "MODEL_DIR_PATH"
	EnvModelDirName = "MODEL_DIR_NAME"
	EnvModelFile    = "TEXTGEND_MODEL_FILE"
	EnvLlamaURL     = "TEXTGEND_LLAMA_URL"
	EnvLlamaAPIKey  = "TEXTGEND_LLAMA_API_KEY"
	EnvLlamaBin     = "TEXTGEND_LLAMA_BIN"
	EnvGPULayers    = "TEXTGEND_LLAMA_GPU_LAYERS"
	EnvLogLevel     = "TEXTGEND_LOG_LEVEL"
	EnvLogFormat    = "TEXTGEND_LOG_FORMAT"
)

// ApplyEnv overlays non-empty environment values on top of cfg.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvAddr, &c.Addr)
	str(EnvModelDirPath, &c.ModelDirPath)
	str(EnvModelDirName, &c.ModelDirName)
	str(EnvModelFile, &c.ModelFile)
	str(EnvLlamaURL, &c.LlamaURL)
	str(EnvLlamaAPIKey, &c.LlamaAPIKey)
	str(EnvLlamaBin, &c.LlamaBin)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)
	if v, ok := lookup(EnvGPULayers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvGPULayers, err)
		}
		c.LlamaGPULayers = n
	}
	return nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LlamaHost == "" {
		c.LlamaHost = DefaultLlamaHost
	}
	if c.StartupTimeoutSeconds <= 0 {
		c.StartupTimeoutSeconds = DefaultStartupTimeoutSeconds
	}
	if c.BackendTimeoutSeconds <= 0 {
		c.BackendTimeoutSeconds = DefaultBackendTimeoutSeconds
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.InferTimeoutSeconds < 0 {
		err = multierr.Append(err, fmt.Errorf("infer_timeout_seconds must be >= 0, got %d", c.InferTimeoutSeconds))
	}
	if c.LlamaCtx < 0 {
		err = multierr.Append(err, fmt.Errorf("llama_ctx must be >= 0, got %d", c.LlamaCtx))
	}
	if c.LlamaThreads < 0 {
		err = multierr.Append(err, fmt.Errorf("llama_threads must be >= 0, got %d", c.LlamaThreads))
	}
	if c.LlamaURL != "" {
		u, perr := url.Parse(c.LlamaURL)
		if perr != nil || u.Scheme == "" || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("llama_url must be an absolute http(s) URL, got %q", c.LlamaURL))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log_format must be json or console, got %q", c.LogFormat))
	}
	return err
}

// Device reports where the backend runs the model, derived from GPU offload.
func (c Config) Device() string {
	if c.LlamaGPULayers != 0 {
		return "gpu"
	}
	return "cpu"
}
