package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/logger"
	"github.com/Strob0t/NetBoxAssistant/internal/port/auditstore"
	"github.com/Strob0t/NetBoxAssistant/internal/port/broadcast"
	"github.com/Strob0t/NetBoxAssistant/internal/port/messagequeue"
)

// Observer receives the observations made while a turn is orchestrated.
// Implementations must not block the turn for long and must not fail it.
type Observer interface {
	RunStatus(ctx context.Context, turn *run.Turn, snap run.Snapshot, poll int)
	ToolResult(ctx context.Context, turn *run.Turn, out run.ToolOutput)
	TurnDone(ctx context.Context, res *run.Result)
}

type nopObserver struct{}

func (nopObserver) RunStatus(context.Context, *run.Turn, run.Snapshot, int) {}
func (nopObserver) ToolResult(context.Context, *run.Turn, run.ToolOutput)  {}
func (nopObserver) TurnDone(context.Context, *run.Result)                  {}

// ToolsStatusEvent is pushed to clients after every turn.
type ToolsStatusEvent struct {
	ThreadID string         `json:"thread_id"`
	Tools    run.ToolStatus `json:"tools"`
}

// EventPublisher fans observations out to the log, the websocket hub, the
// message queue and the audit store. Unset outputs are skipped.
type EventPublisher struct {
	hub   broadcast.Broadcaster
	queue messagequeue.Queue
	audit auditstore.Store
}

// NewEventPublisher creates an EventPublisher that only logs.
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// SetHub sets the websocket broadcaster.
func (e *EventPublisher) SetHub(hub broadcast.Broadcaster) { e.hub = hub }

// SetQueue sets the queue run events are published to.
func (e *EventPublisher) SetQueue(q messagequeue.Queue) { e.queue = q }

// SetAudit sets the audit store.
func (e *EventPublisher) SetAudit(s auditstore.Store) { e.audit = s }

// RunStatus implements Observer.
func (e *EventPublisher) RunStatus(ctx context.Context, turn *run.Turn, snap run.Snapshot, poll int) {
	slog.Debug("run status", append(logger.Attrs(ctx),
		"thread_id", snap.Handle.ThreadID, "run_id", snap.Handle.RunID,
		"status", snap.Status, "round", turn.Round, "poll", poll)...)

	payload := messagequeue.RunStatusPayload{
		TurnID:   turn.ID,
		ThreadID: snap.Handle.ThreadID,
		RunID:    snap.Handle.RunID,
		Status:   string(snap.Status),
		Round:    turn.Round,
		Poll:     poll,
	}
	if e.hub != nil {
		e.hub.BroadcastEvent(ctx, broadcast.EventRunStatus, payload)
	}
	e.publish(ctx, messagequeue.SubjectRunStatus, payload)
}

// ToolResult implements Observer.
func (e *EventPublisher) ToolResult(ctx context.Context, turn *run.Turn, out run.ToolOutput) {
	level := slog.LevelInfo
	attrs := append(logger.Attrs(ctx),
		"run_id", turn.Handle.RunID, "round", turn.Round, "tool", out.ToolName,
		"call_id", out.CallID, "success", out.Success, "duration", out.Duration)
	if !out.Success {
		level = slog.LevelWarn
		attrs = append(attrs, "unknown_tool", errors.Is(out.Err, run.ErrUnknownTool))
	}
	slog.Log(ctx, level, "tool result", attrs...)

	payload := messagequeue.ToolResultPayload{
		TurnID:     turn.ID,
		ThreadID:   turn.Handle.ThreadID,
		RunID:      turn.Handle.RunID,
		Round:      turn.Round,
		CallID:     out.CallID,
		Tool:       out.ToolName,
		Success:    out.Success,
		DurationMS: out.Duration.Milliseconds(),
	}
	if e.hub != nil {
		e.hub.BroadcastEvent(ctx, broadcast.EventToolResult, payload)
	}
	e.publish(ctx, messagequeue.SubjectToolResult, payload)

	if e.audit != nil {
		if err := e.audit.RecordToolCall(ctx, turn.ID, turn.Round, out); err != nil {
			slog.Warn("audit tool call failed", "turn_id", turn.ID, "call_id", out.CallID, "error", err)
		}
	}
}

// TurnDone implements Observer.
func (e *EventPublisher) TurnDone(ctx context.Context, res *run.Result) {
	attrs := append(logger.Attrs(ctx),
		"thread_id", res.Handle.ThreadID, "run_id", res.Handle.RunID,
		"status", res.Status, "rounds", res.Rounds)
	if res.Error != "" {
		slog.Warn("turn failed", append(attrs, "error", res.Error)...)
	} else {
		slog.Info("turn completed", attrs...)
	}

	if e.hub != nil {
		e.hub.BroadcastEvent(ctx, broadcast.EventTurnDone, res)
		e.hub.BroadcastEvent(ctx, broadcast.EventToolsStatus, ToolsStatusEvent{
			ThreadID: res.Handle.ThreadID,
			Tools:    res.Tools,
		})
	}
	e.publish(ctx, messagequeue.SubjectRunComplete, messagequeue.RunCompletePayload{
		TurnID:   res.TurnID,
		ThreadID: res.Handle.ThreadID,
		RunID:    res.Handle.RunID,
		Status:   string(res.Status),
		Rounds:   res.Rounds,
		Tools:    res.Tools,
		Error:    res.Error,
	})

	if e.audit != nil {
		if err := e.audit.RecordTurn(ctx, res); err != nil {
			slog.Warn("audit turn failed", "turn_id", res.TurnID, "error", err)
		}
	}
}

func (e *EventPublisher) publish(ctx context.Context, subject string, payload any) {
	if e.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal run event", "subject", subject, "error", err)
		return
	}
	if err := e.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish run event failed", "subject", subject, "error", err)
	}
}
