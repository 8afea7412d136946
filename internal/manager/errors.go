package manager

import "errors"

// startupError marks a failure to bring the model handle up. The service
// cannot serve without a model, so callers treat it as fatal.
type startupError struct {
	stage string
	err   error
}

func (e startupError) Error() string { return "startup failed: " + e.stage + ": " + e.err.Error() }

func (e startupError) Unwrap() error { return e.err }

func startupFailure(stage string, err error) error { return startupError{stage: stage, err: err} }

// IsStartupFailure reports whether err came from Load.
func IsStartupFailure(err error) bool {
	var se startupError
	return errors.As(err, &se)
}

// modelNotFoundError signals that no usable model artifact was found.
type modelNotFoundError struct{ what string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.what }

// ErrModelNotFound returns an error naming the missing artifact or directory.
func ErrModelNotFound(what string) error { return modelNotFoundError{what: what} }

// IsModelNotFound reports whether err indicates a missing model artifact.
func IsModelNotFound(err error) bool {
	var me modelNotFoundError
	return errors.As(err, &me)
}

// dependencyUnavailableError signals a missing external dependency such as the
// llama-server binary.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}
