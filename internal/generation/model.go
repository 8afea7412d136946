package generation

import "context"

// Encoding is a tokenized prompt for a batch of one.
type Encoding struct {
	InputIDs      []int
	AttentionMask []int
}

// Len returns the number of prompt tokens.
func (e Encoding) Len() int { return len(e.InputIDs) }

// SamplingParams controls a single generate call.
type SamplingParams struct {
	// DoSample selects stochastic sampling over greedy decoding.
	DoSample           bool
	NumReturnSequences int
	MaxNewTokens       int
	Temperature        float64
	TopK               int
	TopP               float64
	RepetitionPenalty  float64
}

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode tokenizes text, truncating to at most maxLength tokens.
	Encode(ctx context.Context, text string, maxLength int) (Encoding, error)
	// Decode renders ids as text, dropping special tokens when skipSpecial is set.
	Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error)
}

// Model extends a prompt by sampling new tokens.
type Model interface {
	// Generate returns the prompt ids followed by the generated ids.
	Generate(ctx context.Context, in Encoding, p SamplingParams) ([]int, error)
}
