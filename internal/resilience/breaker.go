// Package resilience provides reliability patterns for calls to the inventory backend.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state, reported on /health.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker opens after a run of consecutive backend failures and rejects calls
// until the cool-down elapses. Errors the classifier deems caller-side (bad
// query, cancelled context) pass through without counting.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	counts      func(error) bool
	now         func() time.Time
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and half-opens once cooldown has passed.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		counts:      countsByDefault,
		now:         time.Now,
	}
}

// WithClassifier replaces the predicate deciding whether an error trips the breaker.
func (b *Breaker) WithClassifier(counts func(error) bool) *Breaker {
	b.counts = counts
	return b
}

func countsByDefault(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Do runs fn unless the circuit is open or ctx is already done.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.failures = 0
		b.state = StateClosed
	case b.counts(err):
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	case b.state == StateHalfOpen:
		// A caller-side error proves the backend answered.
		b.failures = 0
		b.state = StateClosed
	}
	return err
}

// State reports the current state, moving open to half-open if the cool-down has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state != StateOpen
}

// refresh must be called with b.mu held.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = StateHalfOpen
	}
}
