// Package errors contains helper functions for wrapping errors with stack traces.
package errors

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// New creates a new instance of Error.
// If the given value does not contain an stack trace, it will be created.
func New(val any) error {
	if val == nil {
		return nil
	}

	return goerrors.Wrap(val, 1)
}

// Errorf creates a new error and wraps in an Error type that contains the stack trace.
func Errorf(message string, args ...any) error {
	err := fmt.Errorf(message, args...)
	return goerrors.Wrap(err, 1)
}

// WithStackTrace wraps the given error in an Error type that contains the stack trace. If the given error already has a stack trace,
// it is used directly. If the given error is nil, return nil.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	return goerrors.Wrap(err, 1)
}

// WithStackTraceAndPrefix wraps the given error in an Error type that contains the stack trace and has the given message prepended as part of
// the error message. If the given error is nil, return nil.
func WithStackTraceAndPrefix(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}

	return goerrors.WrapPrefix(err, fmt.Sprintf(message, args...), 1)
}

// ErrorStack returns an stack trace if available.
func ErrorStack(err error) string {
	var errStacks []string

	for err != nil {
		if err, ok := err.(interface{ ErrorStack() string }); ok {
			errStacks = append(errStacks, err.ErrorStack())
		}

		err = errors.Unwrap(err)
	}

	return strings.Join(errStacks, "\n")
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
