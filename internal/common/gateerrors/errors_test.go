package gateerrors

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTestFailuresMessage(t *testing.T) {
	tests := map[string]struct {
		err  *ErrTestFailures
		want string
	}{
		"failures only": {
			err:  &ErrTestFailures{Failures: 2, ErrorsCounted: true, FailuresCounted: true},
			want: "There were test failures.  See the jmeter logs for details.",
		},
		"errors only": {
			err:  &ErrTestFailures{Errors: 1, ErrorsCounted: true, FailuresCounted: true},
			want: "There were test errors.  See the jmeter logs for details.",
		},
		"both": {
			err:  &ErrTestFailures{Errors: 1, Failures: 1, ErrorsCounted: true, FailuresCounted: true},
			want: "There were test errors and failures.  See the jmeter logs for details.",
		},
		"both present but errors ignored": {
			err:  &ErrTestFailures{Errors: 1, Failures: 1, FailuresCounted: true},
			want: "There were test failures.  See the jmeter logs for details.",
		},
		"both present but failures ignored": {
			err:  &ErrTestFailures{Errors: 1, Failures: 1, ErrorsCounted: true},
			want: "There were test errors.  See the jmeter logs for details.",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestClassification(t *testing.T) {
	execErr := NewExecutionError("launch engine", fmt.Errorf("exec: not found"), "could not start %s", "foo.jmx")
	assert.True(t, IsExecutionError(execErr))
	assert.True(t, IsExecutionError(errors.WithMessage(execErr, "outer")))
	assert.False(t, IsTestFailure(execErr))
	assert.Equal(t, "launch engine: could not start foo.jmx: exec: not found", execErr.Error())

	failErr := errors.WithStack(&ErrTestFailures{Failures: 1, FailuresCounted: true})
	assert.True(t, IsTestFailure(failErr))
	assert.False(t, IsExecutionError(failErr))

	invalidErr := errors.WithMessage(&ErrInvalidArgument{Name: "parallelism", Value: 0}, "loading config")
	assert.True(t, IsInvalidArgument(invalidErr))
	assert.False(t, IsInvalidArgument(execErr))

	assert.False(t, IsExecutionError(nil))
	assert.False(t, IsTestFailure(errors.New("foo")))
}

func TestNotFoundMessage(t *testing.T) {
	err := &ErrNotFound{Type: "artifact", Value: "ApacheJMeter_config"}
	assert.Equal(t, `resource "ApacheJMeter_config" of type "artifact" does not exist`, err.Error())
	err.Message = "check the artifact manifest"
	assert.Equal(t, `resource "ApacheJMeter_config" of type "artifact" does not exist; check the artifact manifest`, err.Error())
}
