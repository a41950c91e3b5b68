package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
)

func newTurn() *run.Turn {
	turn := run.NewTurn("turn_1", time.Now())
	turn.Handle = run.Handle{ThreadID: "thread_1", RunID: "run_1"}
	return turn
}

func TestPollReturnsFirstSettledStatus(t *testing.T) {
	tests := []struct {
		name   string
		script []run.Snapshot
		want   run.Status
		polls  int
	}{
		{"immediately settled", []run.Snapshot{status(run.StatusCompleted)}, run.StatusCompleted, 1},
		{"queued then action", []run.Snapshot{status(run.StatusQueued), status(run.StatusInProgress), action(invocation("c", "echo", ``)), status(run.StatusCompleted)}, run.StatusRequiresAction, 3},
		{"failed", []run.Snapshot{status(run.StatusInProgress), status(run.StatusFailed)}, run.StatusFailed, 2},
		{"expired", []run.Snapshot{status(run.StatusExpired)}, run.StatusExpired, 1},
		{"unknown status keeps polling", []run.Snapshot{status("thinking_hard"), status(run.StatusCompleted)}, run.StatusCompleted, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &scriptedRuns{script: tt.script}
			obs := &recordingObserver{}
			p := NewPoller(runs, time.Millisecond, time.Second)
			p.observer = obs
			turn := newTurn()

			snap, err := p.Poll(context.Background(), turn)
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if snap.Status != tt.want {
				t.Fatalf("status = %s, want %s", snap.Status, tt.want)
			}
			if runs.retrieves != tt.polls {
				t.Fatalf("polls = %d, want %d", runs.retrieves, tt.polls)
			}
			if len(obs.statuses) != tt.polls {
				t.Fatalf("observations = %d, want one per poll (%d)", len(obs.statuses), tt.polls)
			}
			if turn.LastStatus != tt.want {
				t.Fatalf("turn last status = %s, want %s", turn.LastStatus, tt.want)
			}
		})
	}
}

func TestPollTimeout(t *testing.T) {
	runs := &scriptedRuns{script: []run.Snapshot{status(run.StatusInProgress)}}
	p := NewPoller(runs, 5*time.Millisecond, 40*time.Millisecond)

	start := time.Now()
	snap, err := p.Poll(context.Background(), newTurn())
	elapsed := time.Since(start)

	if !errors.Is(err, run.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	var te *run.TimeoutError
	if !errors.As(err, &te) || te.LastStatus != run.StatusInProgress {
		t.Fatalf("expected TimeoutError with last status, got %v", err)
	}
	if snap.Status != run.StatusInProgress {
		t.Fatalf("expected last snapshot, got %s", snap.Status)
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("gave up after %s, before the deadline", elapsed)
	}
	// Roughly one poll per interval; generous bounds for slow CI machines.
	if runs.retrieves < 2 || runs.retrieves > 12 {
		t.Fatalf("unexpected poll count %d for a 5ms interval over 40ms", runs.retrieves)
	}
}

func TestPollRemoteErrorIsFatal(t *testing.T) {
	boom := errors.New("503 service unavailable")
	runs := &scriptedRuns{
		script:   []run.Snapshot{status(run.StatusInProgress)},
		retrieve: func(context.Context) error { return boom },
	}
	_, err := NewPoller(runs, time.Millisecond, time.Second).Poll(context.Background(), newTurn())
	if !errors.Is(err, boom) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestPollHonorsCancellation(t *testing.T) {
	runs := &scriptedRuns{script: []run.Snapshot{status(run.StatusQueued)}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewPoller(runs, 5*time.Millisecond, time.Minute).Poll(ctx, newTurn())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestPollDeadlineBoundsSlowStatusCalls(t *testing.T) {
	runs := &scriptedRuns{
		script: []run.Snapshot{status(run.StatusInProgress)},
		retrieve: func(ctx context.Context) error {
			select {
			case <-time.After(500 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	p := NewPoller(runs, 5*time.Millisecond, 40*time.Millisecond)
	turn := newTurn()
	turn.LastStatus = run.StatusQueued

	start := time.Now()
	snap, err := p.Poll(context.Background(), turn)
	elapsed := time.Since(start)

	if !errors.Is(err, run.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	var te *run.TimeoutError
	if !errors.As(err, &te) || te.LastStatus != run.StatusQueued {
		t.Fatalf("expected TimeoutError carrying the last known status, got %v", err)
	}
	if snap.Status != run.StatusQueued {
		t.Fatalf("expected last known snapshot, got %s", snap.Status)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("poll blocked for %s past a 40ms deadline", elapsed)
	}
	if turn.PollDeadline.IsZero() || turn.PollDeadline.Sub(start) > 40*time.Millisecond {
		t.Fatalf("poll deadline not recorded on the turn: %v", turn.PollDeadline)
	}
}
