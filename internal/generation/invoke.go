package generation

import (
	"context"
	"errors"
	"fmt"

	"textgend/internal/config"
)

// Sampling maps a resolved GenerationConfig onto sampling parameters.
// Sampling is always enabled and exactly one sequence is requested.
func Sampling(cfg config.GenerationConfig) SamplingParams {
	return SamplingParams{
		DoSample:           true,
		NumReturnSequences: 1,
		MaxNewTokens:       cfg.MaxNewTokens,
		Temperature:        cfg.Temperature,
		TopK:               cfg.TopK,
		TopP:               cfg.TopP,
		RepetitionPenalty:  cfg.RepetitionPenalty,
	}
}

// Invoke encodes prompt, samples a continuation and decodes the full sequence.
// It makes a single attempt. A non-nil error is always a *Failure.
func Invoke(ctx context.Context, prompt string, tok Tokenizer, model Model, cfg config.GenerationConfig) (text string, err error) {
	if tok == nil || model == nil {
		return "", UnexpectedError(errors.New("model or tokenizer not loaded"))
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = UnexpectedError(fmt.Errorf("panic in model backend: %v", r))
		}
	}()

	enc, err := tok.Encode(ctx, prompt, cfg.MaxInputLength)
	if err != nil {
		return "", classify(err, KindInput)
	}
	if len(enc.AttentionMask) == 0 {
		enc.AttentionMask = onesMask(len(enc.InputIDs))
	}
	if len(enc.AttentionMask) != len(enc.InputIDs) {
		return "", InputError(fmt.Errorf("attention mask length %d does not match %d input ids", len(enc.AttentionMask), len(enc.InputIDs)))
	}

	out, err := model.Generate(ctx, enc, Sampling(cfg))
	if err != nil {
		return "", classify(err, KindGeneration)
	}

	text, err = tok.Decode(ctx, out, true)
	if err != nil {
		return "", classify(err, KindGeneration)
	}
	return text, nil
}

func onesMask(n int) []int {
	m := make([]int, n)
	for i := range m {
		m[i] = 1
	}
	return m
}
