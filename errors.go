package battery

import (
	"errors"
	"fmt"

	"github.com/batterykit/battery/exitcodes"
)

// RuntimeError covers setup and operational failures: bad options, an empty
// registry, a result sink that cannot be created. A battery that fails this
// way never produced a trustworthy verdict, so it maps to exit code 2 rather
// than the plain test-failure code.
type RuntimeError struct {
	Err error
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitCode reports the process exit code this error maps to.
func (e *RuntimeError) ExitCode() int {
	return exitcodes.RuntimeErr
}

// TestFailureError means the battery ran to a verdict and the verdict was
// failure. Message carries the aggregate counts for the top-level log line.
type TestFailureError struct {
	Message string
}

func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

func (e *TestFailureError) ExitCode() int {
	return exitcodes.TestFailure
}

// IsRuntimeError reports whether err is, or wraps, a RuntimeError.
func IsRuntimeError(err error) bool {
	var target *RuntimeError
	return err != nil && errors.As(err, &target)
}

// IsTestFailureError reports whether err is, or wraps, a TestFailureError.
func IsTestFailureError(err error) bool {
	var target *TestFailureError
	return err != nil && errors.As(err, &target)
}
