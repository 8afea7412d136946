package generation

import (
	"context"
	"errors"
)

// Kind classifies a generation failure.
type Kind int

const (
	// KindUnexpected covers defects in surrounding code or environment.
	KindUnexpected Kind = iota
	// KindInput means the prompt could not be turned into model input.
	KindInput
	// KindGeneration means the model failed while generating or decoding.
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindGeneration:
		return "generation"
	default:
		return "unexpected"
	}
}

// Failure is the error returned by Invoke.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String() + " failure"
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// InputError marks err as an input failure.
func InputError(err error) error { return &Failure{Kind: KindInput, Err: err} }

// GenerationError marks err as a generation failure.
func GenerationError(err error) error { return &Failure{Kind: KindGeneration, Err: err} }

// UnexpectedError marks err as an unexpected failure.
func UnexpectedError(err error) error { return &Failure{Kind: KindUnexpected, Err: err} }

// KindOf returns the kind carried by err. Errors that are not a *Failure are unexpected.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnexpected
}

// classify wraps err with fallback unless it already carries a kind.
// Cancellation and deadlines are reported as generation failures whatever the stage.
func classify(err error, fallback Kind) error {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: KindGeneration, Err: err}
	}
	return &Failure{Kind: fallback, Err: err}
}
