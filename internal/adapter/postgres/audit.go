package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/port/auditstore"
)

// AuditStore implements auditstore.Store using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

var _ auditstore.Store = (*AuditStore)(nil)

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) RecordToolCall(ctx context.Context, turnID string, round int, out run.ToolOutput) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tool_calls (turn_id, round, call_id, tool, success, output, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		turnID, round, out.CallID, out.ToolName, out.Success, out.Output, out.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record tool call %s: %w", out.CallID, err)
	}
	return nil
}

// RecordTurn stores the result of a finished turn. Recording the same turn
// twice keeps the latest result.
func (s *AuditStore) RecordTurn(ctx context.Context, res *run.Result) error {
	tools, err := jsonColumn(res.Tools)
	if err != nil {
		return fmt.Errorf("record turn %s: %w", res.TurnID, err)
	}
	msgs, err := jsonColumn(orEmpty(res.Messages))
	if err != nil {
		return fmt.Errorf("record turn %s: %w", res.TurnID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO turns (id, thread_id, run_id, model, status, rounds, tools, messages, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   run_id = EXCLUDED.run_id, model = EXCLUDED.model, status = EXCLUDED.status,
		   rounds = EXCLUDED.rounds, tools = EXCLUDED.tools, messages = EXCLUDED.messages,
		   error = EXCLUDED.error`,
		res.TurnID, res.Handle.ThreadID, res.Handle.RunID, res.Handle.Model,
		string(res.Status), res.Rounds, tools, msgs, res.Error)
	if err != nil {
		return fmt.Errorf("record turn %s: %w", res.TurnID, err)
	}
	return nil
}

// RecentTurns returns up to limit turns of a thread, newest first.
func (s *AuditStore) RecentTurns(ctx context.Context, threadID string, limit int) ([]run.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_id, run_id, model, status, rounds, tools, messages, error
		 FROM turns WHERE thread_id = $1 ORDER BY created_at DESC LIMIT $2`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns %s: %w", threadID, err)
	}
	defer rows.Close()

	results := []run.Result{}
	for rows.Next() {
		r, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("recent turns %s: %w", threadID, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ToolCalls returns the recorded tool outputs of a turn in round order.
func (s *AuditStore) ToolCalls(ctx context.Context, turnID string) ([]run.ToolOutput, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT call_id, tool, output, success, duration_ms
		 FROM tool_calls WHERE turn_id = $1 ORDER BY round, id`, turnID)
	if err != nil {
		return nil, fmt.Errorf("tool calls %s: %w", turnID, err)
	}
	defer rows.Close()

	var outs []run.ToolOutput
	for rows.Next() {
		var (
			o  run.ToolOutput
			ms int64
		)
		if err := rows.Scan(&o.CallID, &o.ToolName, &o.Output, &o.Success, &ms); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		o.Duration = time.Duration(ms) * time.Millisecond
		outs = append(outs, o)
	}
	return outs, rows.Err()
}

func scanTurn(row scannable) (run.Result, error) {
	var (
		r           run.Result
		status      string
		tools, msgs []byte
	)
	if err := row.Scan(&r.TurnID, &r.Handle.ThreadID, &r.Handle.RunID, &r.Handle.Model,
		&status, &r.Rounds, &tools, &msgs, &r.Error); err != nil {
		return run.Result{}, fmt.Errorf("scan turn: %w", err)
	}
	r.Status = run.Status(status)
	if err := json.Unmarshal(tools, &r.Tools); err != nil {
		return run.Result{}, fmt.Errorf("decode tools: %w", err)
	}
	if err := json.Unmarshal(msgs, &r.Messages); err != nil {
		return run.Result{}, fmt.Errorf("decode messages: %w", err)
	}
	return r, nil
}
