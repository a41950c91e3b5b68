// Package auditstore defines the port for persisting an audit trail of orchestrated turns.
package auditstore

import (
	"context"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

// Store records finished turns and the tool calls they made.
type Store interface {
	RecordToolCall(ctx context.Context, turnID string, round int, out run.ToolOutput) error
	RecordTurn(ctx context.Context, res *run.Result) error
	RecentTurns(ctx context.Context, threadID string, limit int) ([]run.Result, error)
}
