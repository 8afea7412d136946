package manager

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"textgend/internal/config"
	"textgend/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultStartupTimeout = 120 * time.Second
	defaultHealthInterval = 200 * time.Millisecond
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// ModelDir is searched for *.gguf artifacts when llama-server is spawned.
	ModelDir  string
	ModelFile string

	// LlamaURL selects an already running llama-server. When empty, LlamaBin is spawned.
	LlamaURL       string
	LlamaAPIKey    string
	LlamaBin       string
	LlamaHost      string
	LlamaCtx       int
	LlamaThreads   int
	LlamaGPULayers int

	Device string

	StartupTimeout time.Duration
	HealthInterval time.Duration
	// BackendTimeout bounds each call to llama-server. Zero disables it.
	BackendTimeout time.Duration

	// Lookup reads generation options per request. Defaults to os.LookupEnv.
	Lookup    config.LookupFunc
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// FromConfig maps the service configuration onto a ManagerConfig.
func FromConfig(c config.Config) ManagerConfig {
	return ManagerConfig{
		ModelDir:       registry.Resolve(c.ModelDirPath, c.ModelDirName),
		ModelFile:      c.ModelFile,
		LlamaURL:       c.LlamaURL,
		LlamaAPIKey:    c.LlamaAPIKey,
		LlamaBin:       c.LlamaBin,
		LlamaHost:      c.LlamaHost,
		LlamaCtx:       c.LlamaCtx,
		LlamaThreads:   c.LlamaThreads,
		LlamaGPULayers: c.LlamaGPULayers,
		Device:         c.Device(),
		StartupTimeout: time.Duration(c.StartupTimeoutSeconds) * time.Second,
		BackendTimeout: time.Duration(c.BackendTimeoutSeconds) * time.Second,
	}
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	m := &Manager{
		cfg:       cfg,
		state:     StateUninitialized,
		device:    cfg.Device,
		lookup:    cfg.Lookup,
		publisher: cfg.Publisher,
	}
	if m.lookup == nil {
		m.lookup = os.LookupEnv
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	return m
}
