package run

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownTool is reported (as an output payload) when the assistant names an unregistered tool.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrToolExecution wraps any failure inside a tool implementation.
	ErrToolExecution = errors.New("tool execution failed")
	// ErrPollTimeout is returned when a run does not settle before the poll deadline.
	ErrPollTimeout = errors.New("run did not settle before the poll deadline")
	// ErrRunFailed is returned when the run ends in failed or another non-completed terminal state.
	ErrRunFailed = errors.New("run failed")
	// ErrUnexpectedResponse is returned when the assistant service answers with a malformed payload.
	ErrUnexpectedResponse = errors.New("unexpected response shape")
	// ErrMaxRounds is returned when a turn exceeds its requires_action round budget.
	ErrMaxRounds = errors.New("too many tool rounds")
	// ErrIncompleteBatch guards against submitting a partial set of tool outputs.
	ErrIncompleteBatch = errors.New("incomplete tool output batch")
)

// FailedError carries the remote failure reason verbatim.
type FailedError struct {
	Status    Status
	LastError *LastError
}

func (e *FailedError) Error() string {
	if e.LastError == nil {
		return fmt.Sprintf("run ended with status %s", e.Status)
	}
	return fmt.Sprintf("run ended with status %s: %s: %s", e.Status, e.LastError.Code, e.LastError.Message)
}

func (e *FailedError) Unwrap() error { return ErrRunFailed }

// TimeoutError reports how long a polling phase waited and the last status seen.
type TimeoutError struct {
	LastStatus Status
	Waited     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run still %s after %s", e.LastStatus, e.Waited.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error { return ErrPollTimeout }
