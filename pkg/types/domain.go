package types

// Model represents a model artifact found in the model directory.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: distilgpt2.Q8_0.gguf
	ID string `json:"id" example:"distilgpt2.Q8_0.gguf"`
	// Absolute path to the model file on disk.
	// example: /srv/models/distilgpt2/distilgpt2.Q8_0.gguf
	Path string `json:"path" example:"/srv/models/distilgpt2/distilgpt2.Q8_0.gguf"`
	// File size in bytes.
	// example: 134217728
	SizeBytes int64 `json:"size_bytes" example:"134217728"`
}
