package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

func TestDispatchOutputsMatchCallIDs(t *testing.T) {
	reg, _ := testTools(t)
	d := NewDispatcher(tool.NewAdapter(reg, time.Second), 0)

	batch := run.Batch{Round: 1, Invocations: []run.ToolInvocation{
		invocation("call_a", "echo", `{"value":"a"}`),
		invocation("call_b", "boom", ``),
		invocation("call_c", "nope", `{}`),
		invocation("call_d", "panic", ``),
		invocation("call_e", "echo", `{"value":"e"}`),
	}}
	outputs := d.Dispatch(context.Background(), batch)

	if len(outputs) != len(batch.Invocations) {
		t.Fatalf("expected %d outputs, got %d", len(batch.Invocations), len(outputs))
	}
	for i, out := range outputs {
		if out.CallID != batch.Invocations[i].CallID {
			t.Errorf("output %d has call id %s, want %s", i, out.CallID, batch.Invocations[i].CallID)
		}
	}
	if err := batch.Complete(outputs); err != nil {
		t.Fatalf("batch incomplete: %v", err)
	}

	wantSuccess := []bool{true, false, false, false, true}
	for i, out := range outputs {
		if out.Success != wantSuccess[i] {
			t.Errorf("%s: success = %v, want %v (output %q)", out.CallID, out.Success, wantSuccess[i], out.Output)
		}
		if !out.Success && !strings.HasPrefix(out.Output, "Error: ") {
			t.Errorf("%s: failure output must start with 'Error: ', got %q", out.CallID, out.Output)
		}
	}
}

func TestDispatchFailingSiblingDoesNotAffectOthers(t *testing.T) {
	reg, _ := testTools(t)
	d := NewDispatcher(tool.NewAdapter(reg, time.Second), 0)

	alone := d.Dispatch(context.Background(), run.Batch{Invocations: []run.ToolInvocation{
		invocation("call_1", "echo", `{"value":"x"}`),
	}})
	mixed := d.Dispatch(context.Background(), run.Batch{Invocations: []run.ToolInvocation{
		invocation("call_1", "echo", `{"value":"x"}`),
		invocation("call_2", "boom", ``),
		invocation("call_3", "panic", ``),
	}})

	if alone[0].Output != mixed[0].Output || alone[0].Success != mixed[0].Success {
		t.Fatalf("sibling failures changed output: %+v vs %+v", alone[0], mixed[0])
	}
	if alone[0].Output != `{"data":{"value":"x"}}` {
		t.Fatalf("unexpected echo output %q", alone[0].Output)
	}
}

func TestDispatchRespectsMaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	reg, err := tool.NewRegistry(tool.New("busy", "Occupies a slot.", func(context.Context, tool.NoArgs) (tool.Result, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return tool.Result{Message: "done"}, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(tool.NewAdapter(reg, time.Second), 2)

	invs := make([]run.ToolInvocation, 6)
	for i := range invs {
		invs[i] = invocation(string(rune('a'+i)), "busy", ``)
	}
	outputs := d.Dispatch(context.Background(), run.Batch{Invocations: invs})

	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent tools, saw %d", got)
	}
	for _, out := range outputs {
		if !out.Success {
			t.Fatalf("unexpected failure %+v", out)
		}
	}
}

func TestDispatchToolTimeoutIsContained(t *testing.T) {
	reg, _ := testTools(t)
	d := NewDispatcher(tool.NewAdapter(reg, 20*time.Millisecond), 0)

	outputs := d.Dispatch(context.Background(), run.Batch{Invocations: []run.ToolInvocation{
		invocation("call_slow", "slow", ``),
		invocation("call_echo", "echo", `{"value":"fast"}`),
	}})

	if outputs[0].Success || !strings.Contains(outputs[0].Output, "deadline exceeded") {
		t.Fatalf("expected timeout output, got %+v", outputs[0])
	}
	if !outputs[1].Success {
		t.Fatalf("sibling should succeed, got %+v", outputs[1])
	}
}

func TestDispatchCancelledWhileWaitingForSlot(t *testing.T) {
	reg, _ := testTools(t)
	d := NewDispatcher(tool.NewAdapter(reg, 0), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	outputs := d.Dispatch(ctx, run.Batch{Invocations: []run.ToolInvocation{
		invocation("call_1", "slow", ``),
		invocation("call_2", "slow", ``),
	}})

	for _, out := range outputs {
		if out.Success || !strings.HasPrefix(out.Output, "Error: ") {
			t.Errorf("expected error output for %s, got %+v", out.CallID, out)
		}
		if !errors.Is(out.Err, run.ErrToolExecution) {
			t.Errorf("%s: expected ErrToolExecution, got %v", out.CallID, out.Err)
		}
	}
}
