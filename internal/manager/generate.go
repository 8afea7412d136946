package manager

import (
	"context"

	"textgend/internal/config"
	"textgend/internal/generation"
)

// Generate resolves the generation options and runs one invocation against the
// attached handles. A non-nil error is always a *generation.Failure.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.RLock()
	model, tok := m.model, m.tok
	m.mu.RUnlock()

	cfg, err := config.ResolveGeneration(m.lookup)
	if err != nil {
		return "", generation.UnexpectedError(err)
	}
	return generation.Invoke(ctx, prompt, tok, model, cfg)
}
