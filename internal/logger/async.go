package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a logging pipeline.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncQueue is the state shared by an AsyncHandler and its derived handlers.
type asyncQueue struct {
	ch      chan queued
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

type queued struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler hands records to background workers through a bounded queue.
// Records below LevelError are dropped when the queue is full; errors are
// written synchronously instead so run and tool failures always reach the log.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler starts workers draining a queue of the given capacity into inner.
func NewAsyncHandler(inner slog.Handler, capacity, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan queued, capacity)}
	if workers < 1 {
		workers = 1
	}
	q.wg.Add(workers)
	for range workers {
		go func() {
			defer q.wg.Done()
			for item := range q.ch {
				_ = item.h.Handle(context.Background(), item.rec)
			}
		}()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler signature
	if rec.Level >= slog.LevelError {
		return h.inner.Handle(ctx, rec.Clone())
	}
	select {
	case h.q.ch <- queued{h: h.inner, rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount reports how many records were discarded on a full queue.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close drains the queue and stops the workers. Safe to call more than once.
func (h *AsyncHandler) Close() {
	h.q.once.Do(func() {
		close(h.q.ch)
		h.q.wg.Wait()
	})
}
