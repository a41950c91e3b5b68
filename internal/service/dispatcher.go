package service

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	cfotel "github.com/Strob0t/NetBoxAssistant/internal/adapter/otel"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// Dispatcher executes every invocation of a batch concurrently and joins
// them before returning. Each invocation writes only its own output slot.
type Dispatcher struct {
	adapter *tool.Adapter
	sem     *semaphore.Weighted // nil = unbounded
	metrics *cfotel.Metrics
}

// NewDispatcher creates a Dispatcher running at most maxParallel tools at
// once. maxParallel <= 0 means one goroutine per invocation without a ceiling.
func NewDispatcher(adapter *tool.Adapter, maxParallel int) *Dispatcher {
	d := &Dispatcher{adapter: adapter}
	if maxParallel > 0 {
		d.sem = semaphore.NewWeighted(int64(maxParallel))
	}
	return d
}

// SetMetrics sets the OTEL metrics instruments for tool call recording.
func (d *Dispatcher) SetMetrics(m *cfotel.Metrics) {
	d.metrics = m
}

// Tools returns the registry the dispatcher executes against.
func (d *Dispatcher) Tools() *tool.Registry {
	return d.adapter.Registry()
}

// Dispatch runs batch and returns one output per invocation, in invocation
// order. It never fails: a failing invocation yields an error output for its
// own call ID while its siblings run to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, batch run.Batch) []run.ToolOutput {
	outputs := make([]run.ToolOutput, len(batch.Invocations))
	var wg sync.WaitGroup

	for i, inv := range batch.Invocations {
		wg.Add(1)
		go func(idx int, inv run.ToolInvocation) {
			defer wg.Done()
			outputs[idx] = d.execute(ctx, inv)
		}(i, inv)
	}
	wg.Wait()

	return outputs
}

func (d *Dispatcher) execute(ctx context.Context, inv run.ToolInvocation) run.ToolOutput {
	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			err = fmt.Errorf("%w: %w", run.ErrToolExecution, err)
			return run.ToolOutput{
				CallID:   inv.CallID,
				ToolName: inv.ToolName,
				Output:   "Error: " + err.Error(),
				Err:      err,
			}
		}
		defer d.sem.Release(1)
	}

	ctx, span := cfotel.StartToolCallSpan(ctx, inv.CallID, inv.ToolName)
	defer span.End()

	out := d.adapter.Execute(ctx, inv)

	span.SetAttributes(attribute.Bool("toolcall.success", out.Success))
	if !out.Success {
		span.SetStatus(codes.Error, out.Output)
	}
	if d.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("tool", inv.ToolName),
			attribute.Bool("success", out.Success),
		)
		d.metrics.ToolCalls.Add(ctx, 1, attrs)
		d.metrics.ToolDuration.Record(ctx, out.Duration.Seconds(), attrs)
	}
	return out
}
