// Package errors provides standardized error handling for fiddle-tunes
// analysis stages and containers. It includes error classification, standard
// error variables for the analysis taxonomy, and helper functions for
// consistent error wrapping across the system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents caller-correctable errors: the request is
	// rejected with a descriptive cause and may succeed with changed input.
	ErrorInvalid ErrorClass = iota
	// ErrorTransient represents backpressure conditions where the caller
	// should retry or reduce batch size.
	ErrorTransient
	// ErrorFatal represents unrecoverable errors that abort startup.
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorTransient:
		return "transient"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for the analysis taxonomy. All are
// caller-correctable except ErrPoolStartup; the core performs no automatic
// retries since computations are deterministic and a retry without changed
// input reproduces the same failure.
var (
	// Stage errors
	ErrInvalidSettings   = errors.New("required setting missing or out of domain")
	ErrIncompatibleInput = errors.New("input series have mismatched voice cardinality")
	ErrUnknownStage      = errors.New("unknown stage")

	// Experimenter errors
	ErrEmptyInput        = errors.New("no qualifying series exist")
	ErrUnalignableGroups = errors.New("combine requested across incompatible group keys")

	// Controller errors
	ErrJobFailure          = errors.New("job failed during execution")
	ErrControllerExhausted = errors.New("submission queue over capacity")
	ErrControllerStopped   = errors.New("controller stopped")
	ErrPoolStartup         = errors.New("worker pool failed to initialize")

	// Container errors
	ErrUnknownPiece = errors.New("piece not found")
)

// ClassifiedError wraps an error with its classification and the identity of
// the stage or component that produced it, so callers can log and retry with
// full context.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is caller-correctable invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrIncompatibleInput) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrUnalignableGroups) ||
		errors.Is(err, ErrUnknownStage)
}

// IsTransient checks if an error is a backpressure signal worth retrying
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrControllerExhausted)
}

// IsFatal checks if an error is fatal and should abort startup
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrPoolStartup)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case IsFatal(err):
		return ErrorFatal
	case IsTransient(err):
		return ErrorTransient
	default:
		return ErrorInvalid
	}
}

// newClassified creates a new classified error.
// Internal helper; use WrapInvalid(), WrapTransient(), or WrapFatal() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as caller-correctable with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTransient wraps an error as a retryable backpressure signal with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}
