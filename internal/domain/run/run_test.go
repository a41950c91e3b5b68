package run_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

func TestStatusSettled(t *testing.T) {
	tests := []struct {
		status   run.Status
		settled  bool
		terminal bool
	}{
		{run.StatusQueued, false, false},
		{run.StatusInProgress, false, false},
		{run.StatusCancelling, false, false},
		{run.StatusRequiresAction, true, false},
		{run.StatusCompleted, true, true},
		{run.StatusFailed, true, true},
		{run.StatusExpired, true, true},
		{run.StatusCancelled, true, true},
		{run.StatusIncomplete, true, true},
		{run.Status("brand_new_state"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Settled(); got != tt.settled {
				t.Errorf("Settled() = %v, want %v", got, tt.settled)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestInvocationArgs(t *testing.T) {
	inv := run.ToolInvocation{CallID: "c1", ToolName: "netbox_sites", Arguments: json.RawMessage(`{"site_name":"AMS"}`)}
	args, err := inv.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	if args["site_name"] != "AMS" {
		t.Fatalf("expected site_name AMS, got %v", args["site_name"])
	}

	empty, err := run.ToolInvocation{ToolName: "netbox_get_all_roles"}.Args()
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty args, got %v, %v", empty, err)
	}

	if _, err := (run.ToolInvocation{ToolName: "x", Arguments: json.RawMessage(`{bad`)}).Args(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBatchValidate(t *testing.T) {
	tests := []struct {
		name string
		invs []run.ToolInvocation
		ok   bool
	}{
		{"valid", []run.ToolInvocation{{CallID: "a", ToolName: "t"}, {CallID: "b", ToolName: "t"}}, true},
		{"empty", nil, false},
		{"missing id", []run.ToolInvocation{{ToolName: "t"}}, false},
		{"missing name", []run.ToolInvocation{{CallID: "a"}}, false},
		{"duplicate id", []run.ToolInvocation{{CallID: "a", ToolName: "t"}, {CallID: "a", ToolName: "u"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := run.Batch{Round: 1, Invocations: tt.invs}
			err := b.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, run.ErrUnexpectedResponse) {
				t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
			}
		})
	}
}

func TestBatchComplete(t *testing.T) {
	b := run.Batch{Invocations: []run.ToolInvocation{{CallID: "a"}, {CallID: "b"}}}

	if err := b.Complete([]run.ToolOutput{{CallID: "b"}, {CallID: "a"}}); err != nil {
		t.Fatalf("expected complete batch, got %v", err)
	}
	if err := b.Complete([]run.ToolOutput{{CallID: "a"}}); !errors.Is(err, run.ErrIncompleteBatch) {
		t.Fatalf("expected ErrIncompleteBatch for missing output, got %v", err)
	}
	if err := b.Complete([]run.ToolOutput{{CallID: "a"}, {CallID: "a"}}); !errors.Is(err, run.ErrIncompleteBatch) {
		t.Fatalf("expected ErrIncompleteBatch for repeated output, got %v", err)
	}
	if err := b.Complete([]run.ToolOutput{{CallID: "a"}, {CallID: "z"}}); !errors.Is(err, run.ErrIncompleteBatch) {
		t.Fatalf("expected ErrIncompleteBatch for foreign output, got %v", err)
	}
}

func TestToolStatusOverwrite(t *testing.T) {
	s := run.ToolStatus{}
	s.Record("netbox_sites", false)
	s.Record("netbox_prefixes", true)
	s.Record("netbox_sites", true)

	if !s["netbox_sites"] {
		t.Error("expected later success to overwrite earlier failure")
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "netbox_prefixes" || names[1] != "netbox_sites" {
		t.Errorf("unexpected names %v", names)
	}

	c := s.Clone()
	c.Record("netbox_sites", false)
	if !s["netbox_sites"] {
		t.Error("clone must not alias the original")
	}
}

func TestFailedError(t *testing.T) {
	err := error(&run.FailedError{Status: run.StatusFailed, LastError: &run.LastError{Code: "rate_limit_exceeded", Message: "slow down"}})
	if !errors.Is(err, run.ErrRunFailed) {
		t.Fatal("FailedError must unwrap to ErrRunFailed")
	}
	if !strings.Contains(err.Error(), "rate_limit_exceeded: slow down") {
		t.Fatalf("expected verbatim reason, got %q", err.Error())
	}

	var fe *run.FailedError
	if !errors.As(err, &fe) || fe.LastError.Message != "slow down" {
		t.Fatal("expected errors.As to recover the last error")
	}
}

func TestTimeoutError(t *testing.T) {
	err := error(&run.TimeoutError{LastStatus: run.StatusInProgress, Waited: 300 * time.Second})
	if !errors.Is(err, run.ErrPollTimeout) {
		t.Fatal("TimeoutError must unwrap to ErrPollTimeout")
	}
	if !strings.Contains(err.Error(), "in_progress") {
		t.Fatalf("expected last status in message, got %q", err.Error())
	}
}

func TestTurnResult(t *testing.T) {
	turn := run.NewTurn("turn-1", time.Now())
	turn.Handle = run.Handle{ThreadID: "th", RunID: "r"}
	turn.Round = 2
	turn.LastStatus = run.StatusCompleted
	turn.Tools.Record("netbox_sites", true)

	res := turn.Result([]run.Message{{Text: "one"}, {Text: ""}, {Text: "two"}}, nil)
	if res.Text() != "one\n\ntwo" {
		t.Errorf("unexpected text %q", res.Text())
	}
	if res.Rounds != 2 || res.Error != "" {
		t.Errorf("unexpected result %+v", res)
	}

	turn.Tools.Record("netbox_sites", false)
	if !res.Tools["netbox_sites"] {
		t.Error("result tools must be a snapshot")
	}
}
