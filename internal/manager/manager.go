package manager

import (
	"sync"

	"github.com/rs/zerolog"

	"textgend/internal/backend/llamaserver"
	"textgend/internal/config"
	"textgend/internal/generation"
)

// Manager is the service context: the model, tokenizer and device shared by
// all requests. Handles are read-only once attached.
type Manager struct {
	cfg       ManagerConfig
	lookup    config.LookupFunc
	log       zerolog.Logger
	publisher EventPublisher

	mu     sync.RWMutex
	state  State
	model  generation.Model
	tok    generation.Tokenizer
	device string
	cur    *ModelInfo
	err    string
	proc   *llamaserver.Process
}

// New constructs a Manager with defaults for everything but the model location.
func New(modelDir, llamaURL string) *Manager {
	return NewWithConfig(ManagerConfig{ModelDir: modelDir, LlamaURL: llamaURL})
}

// Attach binds a model and tokenizer. The manager is ready once both are set.
func (m *Manager) Attach(model generation.Model, tok generation.Tokenizer, device string) {
	m.mu.Lock()
	m.model = model
	m.tok = tok
	if device != "" {
		m.device = device
	}
	if model != nil && tok != nil {
		m.state = StateReady
		m.err = ""
	} else {
		m.state = StateUninitialized
	}
	m.mu.Unlock()
}

// Ready reports whether both a model and a tokenizer are attached.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model != nil && m.tok != nil
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Device returns the device the attached model runs on.
func (m *Manager) Device() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Device: m.device, Err: m.err}
	if m.cur != nil {
		info := *m.cur
		s.Model = &info
	}
	return s
}

func (m *Manager) publish(name, modelID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.publisher.Publish(Event{Name: name, ModelID: modelID, Fields: fields})
}
