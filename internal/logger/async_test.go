package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// slowHandler records messages, optionally sleeping per record.
type slowHandler struct {
	mu    sync.Mutex
	msgs  []string
	delay time.Duration
}

func (h *slowHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *slowHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler signature
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.msgs = append(h.msgs, rec.Message)
	h.mu.Unlock()
	return nil
}

func (h *slowHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *slowHandler) WithGroup(string) slog.Handler      { return h }

func (h *slowHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestAsyncHandlerFlushOnClose(t *testing.T) {
	inner := &slowHandler{}
	ah := NewAsyncHandler(inner, 512, 3)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "poll", 0))
			}
		}()
	}
	wg.Wait()
	ah.Close()
	ah.Close()

	if got := len(inner.messages()) + int(ah.DroppedCount()); got != 400 {
		t.Fatalf("written+dropped = %d, want 400", got)
	}
}

func TestAsyncHandlerDropsInfoButKeepsErrors(t *testing.T) {
	inner := &slowHandler{delay: 5 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 30 {
		_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "run status", 0))
	}
	_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "run failed", 0))
	ah.Close()

	if ah.DroppedCount() == 0 {
		t.Fatal("expected info records to be dropped on a full queue")
	}
	found := false
	for _, m := range inner.messages() {
		if m == "run failed" {
			found = true
		}
	}
	if !found {
		t.Fatal("error record was dropped")
	}
}

func TestAsyncHandlerDerivedSharesQueue(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	base := slog.NewJSONHandler(&lockedWriter{w: &buf, mu: &mu}, nil)
	ah := NewAsyncHandler(base, 16, 1)

	l := slog.New(ah).With("thread_id", "thread_1")
	l.Info("tool result", "tool", "netbox_sites")
	ah.Close()

	mu.Lock()
	line := strings.TrimSpace(buf.String())
	mu.Unlock()
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if rec["thread_id"] != "thread_1" || rec["tool"] != "netbox_sites" {
		t.Fatalf("unexpected record %v", rec)
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
