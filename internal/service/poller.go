package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfotel "github.com/Strob0t/NetBoxAssistant/internal/adapter/otel"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/port/assistant"
)

// Poller observes a remote run at a fixed interval until it settles.
type Poller struct {
	runs     assistant.RunService
	interval time.Duration
	timeout  time.Duration
	observer Observer
	metrics  *cfotel.Metrics
}

// NewPoller creates a Poller. timeout bounds one polling phase, measured from
// its first poll; it is not cumulative across rounds.
func NewPoller(runs assistant.RunService, interval, timeout time.Duration) *Poller {
	return &Poller{runs: runs, interval: interval, timeout: timeout, observer: nopObserver{}}
}

// Poll fetches the status of turn.Handle immediately and then every interval,
// returning the first settled snapshot. Every observation is reported to the
// observer and stored in turn.LastStatus.
func (p *Poller) Poll(ctx context.Context, turn *run.Turn) (run.Snapshot, error) {
	start := time.Now()
	// The phase deadline also bounds each status call, so a hung request
	// cannot hold the poller past it.
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	turn.PollDeadline, _ = pctx.Deadline()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		snap, err := p.runs.RetrieveRun(pctx, turn.Handle)
		if err != nil {
			if p.expired(ctx, pctx) {
				last := turn.LastStatus
				return run.Snapshot{Handle: turn.Handle, Status: last}, &run.TimeoutError{LastStatus: last, Waited: time.Since(start)}
			}
			return run.Snapshot{}, fmt.Errorf("retrieve run %s: %w", turn.Handle.RunID, err)
		}
		turn.LastStatus = snap.Status
		if p.metrics != nil {
			p.metrics.Polls.Add(ctx, 1)
		}
		p.observer.RunStatus(ctx, turn, snap, n)

		if snap.Status.Settled() {
			return snap, nil
		}

		select {
		case <-pctx.Done():
			if p.expired(ctx, pctx) {
				return snap, &run.TimeoutError{LastStatus: snap.Status, Waited: time.Since(start)}
			}
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}

// expired reports whether the phase deadline fired while the caller's
// context is still live.
func (p *Poller) expired(ctx, pctx context.Context) bool {
	return ctx.Err() == nil && errors.Is(pctx.Err(), context.DeadlineExceeded)
}
