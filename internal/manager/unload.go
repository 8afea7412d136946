package manager

import (
	"context"
	"time"
)

const defaultStopTimeout = 10 * time.Second

// Detach unbinds the model and tokenizer. Subsequent readiness checks fail.
func (m *Manager) Detach() {
	m.mu.Lock()
	m.model = nil
	m.tok = nil
	m.state = StateUninitialized
	id := ""
	if m.cur != nil {
		id = m.cur.ID
	}
	m.cur = nil
	m.mu.Unlock()
	m.publish("detach", id, nil)
}

// Close detaches the handles and stops a spawned llama-server, killing it if
// ctx expires first.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	proc := m.proc
	m.proc = nil
	m.mu.Unlock()
	m.Detach()
	if proc == nil {
		return nil
	}
	err := proc.Stop(ctx)
	m.publish("close", "", map[string]any{"pid": proc.PID()})
	return err
}
