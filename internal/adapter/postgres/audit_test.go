package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/NetBoxAssistant/internal/adapter/postgres"
	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

// setupStore connects to DATABASE_URL, runs all migrations, and returns a
// ready-to-use AuditStore. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.AuditStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewAuditStore(pool)
}

func TestMigrationVersion(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}
	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v < 1 {
		t.Fatalf("expected version >= 1, got %d", v)
	}
}

func TestRecordAndListTurns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	threadID := "thread_" + uuid.NewString()

	first := &run.Result{
		TurnID: uuid.NewString(),
		Handle: run.Handle{ThreadID: threadID, RunID: "run_1", Model: "gpt-4o-mini"},
		Status: run.StatusCompleted,
		Messages: []run.Message{
			{ID: "msg_1", RunID: "run_1", Role: run.RoleAssistant, Text: "AMS1 is active.", CreatedAt: 10},
		},
		Rounds: 1,
		Tools:  run.ToolStatus{"netbox_sites": true},
	}
	if err := store.RecordTurn(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	second := &run.Result{
		TurnID: uuid.NewString(),
		Handle: run.Handle{ThreadID: threadID, RunID: "run_2"},
		Status: run.StatusFailed,
		Error:  "run failed: rate_limit_exceeded",
	}
	if err := store.RecordTurn(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	turns, err := store.RecentTurns(ctx, threadID, 10)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].TurnID != second.TurnID {
		t.Errorf("expected newest turn first, got %s", turns[0].TurnID)
	}
	if turns[1].Text() != "AMS1 is active." {
		t.Errorf("expected stored message text, got %q", turns[1].Text())
	}
	if !turns[1].Tools["netbox_sites"] {
		t.Errorf("expected tool status to round-trip, got %v", turns[1].Tools)
	}
	if turns[0].Error == "" || turns[0].Status != run.StatusFailed {
		t.Errorf("expected failed turn, got %+v", turns[0])
	}

	limited, err := store.RecentTurns(ctx, threadID, 1)
	if err != nil {
		t.Fatalf("recent turns limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestRecordTurnUpserts(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	res := &run.Result{TurnID: uuid.NewString(), Handle: run.Handle{ThreadID: "thread_" + uuid.NewString()}, Status: run.StatusInProgress}

	if err := store.RecordTurn(ctx, res); err != nil {
		t.Fatalf("record: %v", err)
	}
	res.Status = run.StatusCompleted
	res.Rounds = 3
	if err := store.RecordTurn(ctx, res); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	turns, err := store.RecentTurns(ctx, res.Handle.ThreadID, 10)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(turns) != 1 || turns[0].Status != run.StatusCompleted || turns[0].Rounds != 3 {
		t.Fatalf("expected single updated turn, got %+v", turns)
	}
}

func TestRecordToolCalls(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	turnID := uuid.NewString()

	outs := []run.ToolOutput{
		{CallID: "call_1", ToolName: "netbox_sites", Output: `{"data":[]}`, Success: true, Duration: 40 * time.Millisecond},
		{CallID: "call_2", ToolName: "netbox_devices", Output: "Error: tool execution failed: boom", Success: false},
	}
	for i, o := range outs {
		if err := store.RecordToolCall(ctx, turnID, i+1, o); err != nil {
			t.Fatalf("record tool call: %v", err)
		}
	}

	got, err := store.ToolCalls(ctx, turnID)
	if err != nil {
		t.Fatalf("tool calls: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(got))
	}
	if got[0].CallID != "call_1" || got[0].Duration != 40*time.Millisecond {
		t.Errorf("unexpected first call: %+v", got[0])
	}
	if got[1].Success {
		t.Error("expected failed call to stay unsuccessful")
	}
}
