package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// threadRef picks the thread an event payload belongs to.
type threadRef struct {
	ThreadID string `json:"thread_id"`
	Handle   struct {
		ThreadID string `json:"thread_id"`
	} `json:"handle"`
}

// BroadcastEvent marshals a typed event and broadcasts it to the clients
// following the payload's thread.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	var ref threadRef
	_ = json.Unmarshal(data, &ref)
	threadID := ref.ThreadID
	if threadID == "" {
		threadID = ref.Handle.ThreadID
	}

	h.Broadcast(ctx, threadID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
