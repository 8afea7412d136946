package manager

// State represents the lifecycle state of the model handle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
)

// ModelInfo describes the attached model.
type ModelInfo struct {
	ID         string
	Path       string // empty when the backend was started elsewhere
	SizeBytes  int64
	BackendURL string
	PID        int // llama-server child, 0 when external
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State  State
	Model  *ModelInfo
	Device string
	Err    string
}
