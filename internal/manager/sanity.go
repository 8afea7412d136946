package manager

import (
	"textgend/internal/backend/llamaserver"
	"textgend/internal/common/fsutil"
	"textgend/internal/registry"
)

// SanityReport describes the checks Load depends on.
type SanityReport struct {
	Mode       string `json:"mode"` // "external" or "spawn"
	LlamaURL   string `json:"llama_url,omitempty"`
	LlamaFound bool   `json:"llama_found"`
	LlamaPath  string `json:"llama_path,omitempty"`
	ModelDir   string `json:"model_dir"`
	ModelCount int    `json:"model_count"`
	Error      string `json:"error,omitempty"`
}

// SanityCheck validates that the llama-server binary and a model artifact are
// available. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{ModelDir: m.cfg.ModelDir}
	if models, err := registry.LoadDir(m.cfg.ModelDir); err == nil {
		r.ModelCount = len(models)
	}
	if m.cfg.LlamaURL != "" {
		r.Mode = "external"
		r.LlamaURL = m.cfg.LlamaURL
		return r
	}
	r.Mode = "spawn"
	bin := m.cfg.LlamaBin
	if bin == "" {
		bin = llamaserver.DiscoverBin()
	}
	r.LlamaPath = bin
	switch {
	case bin == "":
		r.Error = llamaserver.ErrBinaryNotFound.Error()
	case !fsutil.IsFile(bin):
		r.Error = "llama-server path is not a file"
	default:
		r.LlamaFound = true
	}
	if r.Error == "" && r.ModelCount == 0 {
		r.Error = "no *.gguf model in " + m.cfg.ModelDir
	}
	return r
}
