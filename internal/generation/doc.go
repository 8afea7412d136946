// Package generation runs one prompt through the encode, sample and decode
// stages of a causal language model and classifies any failure.
//
// The model itself is opaque: a Tokenizer turns text into token ids and back,
// and a Model extends a token sequence by sampling. Both are shared read-only
// across concurrent requests. Implementations run in inference mode only; the
// contract carries no training surface.
//
// Invoke never returns a bare error. Every failure is a *Failure whose Kind is
// one of KindInput, KindGeneration or KindUnexpected, so callers can switch on
// the kind exhaustively instead of matching error types.
package generation
