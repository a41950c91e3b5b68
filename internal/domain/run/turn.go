package run

import "time"

// Turn is the context object threaded through one user message's orchestration.
// It is owned by a single goroutine; the dispatcher writes tool flags only after joining.
type Turn struct {
	ID         string
	Handle     Handle
	Round      int
	StartedAt  time.Time
	LastStatus Status
	Tools      ToolStatus

	// TurnDeadline bounds the whole turn; zero when unbounded.
	TurnDeadline time.Time
	// PollDeadline bounds the current polling phase and is reset by every phase.
	PollDeadline time.Time
}

// NewTurn returns a turn with an empty tool status map.
func NewTurn(id string, now time.Time) *Turn {
	return &Turn{ID: id, StartedAt: now, Tools: ToolStatus{}}
}

// Result snapshots the turn into a Result. err, if non-nil, is recorded as text.
func (t *Turn) Result(msgs []Message, err error) *Result {
	r := &Result{
		TurnID:   t.ID,
		Handle:   t.Handle,
		Status:   t.LastStatus,
		Messages: msgs,
		Rounds:   t.Round,
		Tools:    t.Tools.Clone(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
