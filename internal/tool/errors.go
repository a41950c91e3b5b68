package tool

import (
	"errors"
	"fmt"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

// ArgumentError reports arguments that are not a valid JSON object for the tool.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// execError classifies a failure raised by a tool or its backend as
// run.ErrToolExecution while keeping the original message.
type execError struct {
	err error
}

func (e *execError) Error() string { return e.err.Error() }

func (e *execError) Unwrap() []error { return []error{run.ErrToolExecution, e.err} }

func executionError(err error) error {
	if errors.Is(err, run.ErrToolExecution) {
		return err
	}
	return &execError{err: err}
}
