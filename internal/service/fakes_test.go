package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// scriptedRuns is a RunService whose RetrieveRun answers walk a fixed script.
// The last scripted snapshot repeats once the script is exhausted.
type scriptedRuns struct {
	mu        sync.Mutex
	script    []run.Snapshot
	retrieves int
	retrieve  func(ctx context.Context) error // optional hook before each answer
	submits   [][]run.ToolOutput
	messages  []run.Message
	posted    []string
	failOn    string // "create", "submit" or "list"
}

func (s *scriptedRuns) CreateThread(context.Context) (string, error) {
	return "thread_1", nil
}

func (s *scriptedRuns) AddUserMessage(_ context.Context, _ string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posted = append(s.posted, content)
	return nil
}

func (s *scriptedRuns) CreateRun(_ context.Context, threadID, _, model string) (run.Snapshot, error) {
	if s.failOn == "create" {
		return run.Snapshot{}, errors.New("assistant unavailable")
	}
	return run.Snapshot{Handle: run.Handle{ThreadID: threadID, RunID: "run_1", Model: model}, Status: run.StatusQueued}, nil
}

func (s *scriptedRuns) RetrieveRun(ctx context.Context, h run.Handle) (run.Snapshot, error) {
	if s.retrieve != nil {
		if err := s.retrieve(ctx); err != nil {
			return run.Snapshot{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.retrieves
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.retrieves++
	snap := s.script[idx]
	snap.Handle = h
	return snap, nil
}

func (s *scriptedRuns) SubmitToolOutputs(_ context.Context, h run.Handle, outputs []run.ToolOutput) (run.Snapshot, error) {
	if s.failOn == "submit" {
		return run.Snapshot{}, errors.New("run is not awaiting tool outputs")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, append([]run.ToolOutput(nil), outputs...))
	return run.Snapshot{Handle: h, Status: run.StatusQueued}, nil
}

func (s *scriptedRuns) ListMessages(context.Context, string, string) ([]run.Message, error) {
	if s.failOn == "list" {
		return nil, errors.New("list failed")
	}
	return s.messages, nil
}

func (s *scriptedRuns) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submits)
}

func status(st run.Status) run.Snapshot {
	return run.Snapshot{Status: st}
}

func action(invs ...run.ToolInvocation) run.Snapshot {
	return run.Snapshot{Status: run.StatusRequiresAction, Action: invs}
}

func invocation(callID, name, args string) run.ToolInvocation {
	return run.ToolInvocation{CallID: callID, ToolName: name, Arguments: json.RawMessage(args)}
}

type echoArgs struct {
	Value string `json:"value"`
}

// testTools returns a registry with an echoing tool, a failing tool, a
// panicking tool and a slow tool, plus a counter of echo invocations.
func testTools(t *testing.T) (*tool.Registry, *atomic.Int32) {
	t.Helper()
	var echoed atomic.Int32
	reg, err := tool.NewRegistry(
		tool.New("echo", "Echo the value.", func(_ context.Context, a echoArgs) (tool.Result, error) {
			echoed.Add(1)
			return tool.Result{Data: map[string]any{"value": a.Value}}, nil
		}),
		tool.New("boom", "Always fails.", func(context.Context, tool.NoArgs) (tool.Result, error) {
			return tool.Result{}, errors.New("netbox unreachable")
		}),
		tool.New("panic", "Always panics.", func(context.Context, tool.NoArgs) (tool.Result, error) {
			panic("nil map")
		}),
		tool.New("slow", "Waits for cancellation.", func(ctx context.Context, _ tool.NoArgs) (tool.Result, error) {
			<-ctx.Done()
			return tool.Result{}, ctx.Err()
		}),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg, &echoed
}

func testOrchestratorConfig() *config.Orchestrator {
	return &config.Orchestrator{
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
		TurnTimeout:  5 * time.Second,
		ToolTimeout:  time.Second,
		MaxRounds:    16,
	}
}

func newTestOrchestrator(t *testing.T, runs *scriptedRuns, cfg *config.Orchestrator) (*Orchestrator, *atomic.Int32) {
	t.Helper()
	reg, echoed := testTools(t)
	d := NewDispatcher(tool.NewAdapter(reg, cfg.ToolTimeout), cfg.MaxParallel)
	o := NewOrchestrator(runs, d, cfg, &config.Assistant{AssistantID: "asst_1", Model: "gpt-4o-mini"})
	return o, echoed
}

// recordingObserver counts the observations it receives.
type recordingObserver struct {
	mu       sync.Mutex
	statuses []run.Status
	tools    []run.ToolOutput
	done     []*run.Result
	turns    []run.Turn // copy of the turn at each status observation
}

func (r *recordingObserver) RunStatus(_ context.Context, turn *run.Turn, snap run.Snapshot, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, snap.Status)
	r.turns = append(r.turns, *turn)
}

func (r *recordingObserver) ToolResult(_ context.Context, _ *run.Turn, out run.ToolOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = append(r.tools, out)
}

func (r *recordingObserver) TurnDone(_ context.Context, res *run.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, res)
}
