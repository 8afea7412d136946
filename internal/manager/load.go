package manager

import (
	"context"
	"errors"
	"fmt"

	"textgend/internal/backend/llamaserver"
	"textgend/internal/registry"
)

// Load brings the model handle up: it resolves the artifact, starts or
// connects to llama-server, waits until it is healthy and attaches it.
// Any error is a startup failure. Load on a ready manager is a no-op.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	info, client, proc, err := m.start(ctx)
	if err != nil {
		m.fail(info.ID, err)
		return err
	}
	m.mu.Lock()
	m.cur = &info
	m.proc = proc
	m.mu.Unlock()
	m.Attach(client, client, m.cfg.Device)

	m.log.Info().
		Str("model", info.ID).
		Str("backend", info.BackendURL).
		Str("device", m.cfg.Device).
		Msgf("Using device: %s", m.cfg.Device)
	m.publish("load_ready", info.ID, map[string]any{"backend": info.BackendURL, "device": m.cfg.Device})
	return nil
}

func (m *Manager) start(ctx context.Context) (ModelInfo, *llamaserver.Client, *llamaserver.Process, error) {
	var info ModelInfo
	var proc *llamaserver.Process
	baseURL := m.cfg.LlamaURL
	if baseURL == "" {
		models, err := registry.LoadDir(m.cfg.ModelDir)
		if err != nil {
			return info, nil, nil, startupFailure("resolve model", fmt.Errorf("%w: %w", ErrModelNotFound(m.cfg.ModelDir), err))
		}
		mdl, err := registry.Pick(models, m.cfg.ModelFile)
		if err != nil {
			return info, nil, nil, startupFailure("resolve model", fmt.Errorf("%w: %w", ErrModelNotFound(m.cfg.ModelDir), err))
		}
		info = ModelInfo{ID: mdl.ID, Path: mdl.Path, SizeBytes: mdl.SizeBytes}
		m.publish("load_start", info.ID, map[string]any{"path": mdl.Path})
		proc, err = llamaserver.StartProcess(llamaserver.ProcessOptions{
			Bin:       m.cfg.LlamaBin,
			Host:      m.cfg.LlamaHost,
			ModelPath: mdl.Path,
			CtxSize:   m.cfg.LlamaCtx,
			Threads:   m.cfg.LlamaThreads,
			GPULayers: m.cfg.LlamaGPULayers,
		}, m.log)
		if err != nil {
			if errors.Is(err, llamaserver.ErrBinaryNotFound) {
				err = fmt.Errorf("%w: %w", ErrDependencyUnavailable("llama-server binary unavailable"), err)
			}
			return info, nil, nil, startupFailure("start llama-server", err)
		}
		baseURL = proc.BaseURL()
		info.PID = proc.PID()
	} else {
		info = ModelInfo{ID: "external"}
		m.publish("load_start", info.ID, map[string]any{"backend": baseURL})
	}
	info.BackendURL = baseURL

	client := llamaserver.New(llamaserver.Options{
		BaseURL:        baseURL,
		APIKey:         m.cfg.LlamaAPIKey,
		RequestTimeout: m.cfg.BackendTimeout,
	})
	var exited <-chan struct{}
	if proc != nil {
		exited = proc.Exited()
	}
	if err := llamaserver.WaitReady(ctx, client, m.cfg.StartupTimeout, m.cfg.HealthInterval, exited); err != nil {
		m.stopProcess(ctx, proc)
		return info, nil, nil, startupFailure("wait for llama-server", err)
	}
	if err := client.Warmup(ctx); err != nil {
		m.stopProcess(ctx, proc)
		return info, nil, nil, startupFailure("warmup", err)
	}
	return info, client, proc, nil
}

func (m *Manager) fail(modelID string, err error) {
	m.mu.Lock()
	m.state = StateUninitialized
	m.err = err.Error()
	m.mu.Unlock()
	m.publish("load_failed", modelID, map[string]any{"error": err.Error()})
}

func (m *Manager) stopProcess(ctx context.Context, proc *llamaserver.Process) {
	if proc == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultStopTimeout)
	defer cancel()
	if err := proc.Stop(stopCtx); err != nil {
		m.log.Warn().Err(err).Int("pid", proc.PID()).Msg("llama-server did not stop cleanly")
	}
}
