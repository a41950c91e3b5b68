// Package broadcast defines the port for pushing live run events to connected clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventRunStatus   = "run.status"
	EventToolResult  = "run.tool_result"
	EventTurnDone    = "turn.done"
	EventToolsStatus = "tools.status"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
