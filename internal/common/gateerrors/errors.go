// Package gateerrors contains the error types returned across loadgate.
// Callers should look for these types with errors.As rather than matching on messages,
// since most errors are wrapped with github.com/pkg/errors on their way up.
//
// If multiple errors occur in some function (e.g., several invalid config fields), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package gateerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "artifact" or "properties file"
	Value   string // Resource name, e.g., "ApacheJMeter_config"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "parallelism"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrExecution is returned when staging, launching or scanning could not be carried out.
// An execution error aborts the orchestration; it is never retried.
type ErrExecution struct {
	// Step that failed, e.g., "copy plugin" or "launch engine".
	Op string
	// Human-readable description of the failure.
	Message string
	// Underlying error, if any.
	Cause error
}

func (err *ErrExecution) Error() string {
	s := err.Message
	if err.Op != "" {
		s = fmt.Sprintf("%s: %s", err.Op, err.Message)
	}
	if err.Cause != nil {
		s = fmt.Sprintf("%s: %s", s, err.Cause)
	}
	return s
}

func (err *ErrExecution) Unwrap() error {
	return err.Cause
}

// NewExecutionError returns an ErrExecution with a stack attached.
func NewExecutionError(op string, cause error, format string, args ...interface{}) error {
	return errors.WithStack(&ErrExecution{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	})
}

// ErrTestFailures is returned when the result logs contain errors or failures
// that were not configured to be ignored. The counts are the totals over every artifact.
type ErrTestFailures struct {
	Errors   int
	Failures int
	// Whether each kind of problem counts towards the verdict.
	ErrorsCounted   bool
	FailuresCounted bool
}

func (err *ErrTestFailures) Error() string {
	failing := err.FailuresCounted && err.Failures > 0
	erroring := err.ErrorsCounted && err.Errors > 0
	switch {
	case failing && erroring:
		return "There were test errors and failures.  See the jmeter logs for details."
	case erroring:
		return "There were test errors.  See the jmeter logs for details."
	default:
		return "There were test failures.  See the jmeter logs for details."
	}
}

// IsExecutionError returns true if an ErrExecution is anywhere in the chain of err.
func IsExecutionError(err error) bool {
	var e *ErrExecution
	return errors.As(err, &e)
}

// IsTestFailure returns true if an ErrTestFailures is anywhere in the chain of err.
func IsTestFailure(err error) bool {
	var e *ErrTestFailures
	return errors.As(err, &e)
}

// IsInvalidArgument returns true if an ErrInvalidArgument is anywhere in the chain of err.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}
