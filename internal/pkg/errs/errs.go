package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ExternalError marks a failure from an upstream provider (model API, blob
// store). External failures are transient by classification: the runner
// retries them rather than failing the job outright.
type ExternalError struct {
	Provider string
	Err      error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func External(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Provider: provider, Err: err}
}
