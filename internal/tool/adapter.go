package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

// Adapter executes one invocation against the registry. It never returns an
// error and never panics: every failure becomes a textual "Error: ..." output
// with Success=false, so a batch can always be answered in full.
type Adapter struct {
	registry *Registry
	timeout  time.Duration
	now      func() time.Time
}

// NewAdapter returns an adapter bounding each invocation by timeout (0 = no bound).
func NewAdapter(reg *Registry, timeout time.Duration) *Adapter {
	return &Adapter{registry: reg, timeout: timeout, now: time.Now}
}

// Registry returns the tools the adapter dispatches to.
func (a *Adapter) Registry() *Registry {
	return a.registry
}

// Execute runs inv and serializes its result.
func (a *Adapter) Execute(ctx context.Context, inv run.ToolInvocation) (out run.ToolOutput) {
	start := a.now()
	out = run.ToolOutput{CallID: inv.CallID, ToolName: inv.ToolName}

	defer func() {
		if r := recover(); r != nil {
			out = a.failure(inv, start, fmt.Errorf("%w: panic: %v", run.ErrToolExecution, r))
		}
	}()

	t, ok := a.registry.Lookup(inv.ToolName)
	if !ok {
		return a.failure(inv, start, fmt.Errorf("%w: %s", run.ErrUnknownTool, inv.ToolName))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res, err := t.Invoke(ctx, inv.Arguments)
	if err != nil {
		return a.failure(inv, start, executionError(err))
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return a.failure(inv, start, fmt.Errorf("%w: encode result: %v", run.ErrToolExecution, err))
	}

	out.Output = string(payload)
	out.Success = true
	out.Duration = a.now().Sub(start)
	slog.Debug("tool executed", "tool", inv.ToolName, "call_id", inv.CallID, "duration", out.Duration)
	return out
}

func (a *Adapter) failure(inv run.ToolInvocation, start time.Time, err error) run.ToolOutput {
	slog.Warn("tool failed", "tool", inv.ToolName, "call_id", inv.CallID, "error", err)
	return run.ToolOutput{
		CallID:   inv.CallID,
		ToolName: inv.ToolName,
		Output:   "Error: " + err.Error(),
		Success:  false,
		Duration: a.now().Sub(start),
		Err:      err,
	}
}
