package cli

import (
	stderrors "errors"
	"fmt"
)

// ExitError carries a process exit code out of a command. Code 0 is never
// wrapped in an ExitError.
type ExitError struct {
	Code  int
	Cause error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// Exit returns an *ExitError for a non-zero code and nil otherwise.
func Exit(code int, cause error) error {
	if code == 0 && cause == nil {
		return nil
	}
	if code == 0 {
		code = 1
	}
	return &ExitError{Code: code, Cause: cause}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
