// Package assistant defines the port to the hosted assistant runs API.
package assistant

import (
	"context"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

// RunService is the subset of the assistant threads/runs API the orchestrator drives.
// Implementations are safe for concurrent use.
type RunService interface {
	CreateThread(ctx context.Context) (threadID string, err error)
	AddUserMessage(ctx context.Context, threadID, content string) error
	CreateRun(ctx context.Context, threadID, assistantID, model string) (run.Snapshot, error)
	RetrieveRun(ctx context.Context, h run.Handle) (run.Snapshot, error)
	SubmitToolOutputs(ctx context.Context, h run.Handle, outputs []run.ToolOutput) (run.Snapshot, error)
	// ListMessages returns the messages created by runID in chronological order.
	ListMessages(ctx context.Context, threadID, runID string) ([]run.Message, error)
}

// FunctionSpec describes one callable function advertised to the assistant.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  any // JSON schema object
}

// ToolSyncer pushes the local tool catalog to the remote assistant definition.
type ToolSyncer interface {
	SyncTools(ctx context.Context, assistantID string, specs []FunctionSpec) error
}
