// Package run defines the remote assistant run and the values exchanged while orchestrating it.
package run

import "strings"

// Status is the lifecycle state reported by the assistant service for a run.
// Unknown values are carried through unchanged.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusInProgress     Status = "in_progress"
	StatusRequiresAction Status = "requires_action"
	StatusCancelling     Status = "cancelling"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
	StatusCompleted      Status = "completed"
	StatusIncomplete     Status = "incomplete"
	StatusExpired        Status = "expired"
)

// Terminal reports whether the run can no longer change state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired, StatusIncomplete:
		return true
	}
	return false
}

// Settled reports whether polling should stop: the run either needs tool
// outputs or has reached a terminal state.
func (s Status) Settled() bool {
	return s == StatusRequiresAction || s.Terminal()
}

// Handle identifies one remote run inside a conversation thread. Immutable once created.
type Handle struct {
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	Model    string `json:"model,omitempty"`
}

// LastError is the failure reason the assistant service attaches to a failed run.
type LastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Snapshot is one fresh observation of a remote run.
type Snapshot struct {
	Handle    Handle           `json:"handle"`
	Status    Status           `json:"status"`
	Action    []ToolInvocation `json:"action,omitempty"` // set when Status is requires_action
	LastError *LastError       `json:"last_error,omitempty"`
}

// Message is one thread message as listed by the assistant service.
type Message struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id,omitempty"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// RoleAssistant is the role of messages produced by the assistant.
const RoleAssistant = "assistant"

// Result is the outcome of one orchestrated turn. On failure the error is
// recorded alongside whatever progress was made.
type Result struct {
	TurnID   string     `json:"turn_id"`
	Handle   Handle     `json:"handle"`
	Status   Status     `json:"status"`
	Messages []Message  `json:"messages,omitempty"`
	Rounds   int        `json:"rounds"`
	Tools    ToolStatus `json:"tools,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Text joins the assistant message bodies in order, separated by blank lines.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
