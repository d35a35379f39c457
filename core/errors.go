package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// RemoteError wraps failures of external collaborators (file store, notifier).
// The caller's in-progress state must be kept so the action can be retried.
type RemoteError struct {
	Op  string
	Err error
}

func NewRemoteError(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}

func (err RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err RemoteError) Unwrap() error { return err.Err }

func IsRemote(err error) bool {
	_, ok := errors.Cause(err).(*RemoteError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
