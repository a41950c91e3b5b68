package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/NetBoxAssistant/internal/logger"
	"github.com/Strob0t/NetBoxAssistant/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

// uniqueSubject returns a subject captured by the run stream (runs.>) that
// the validator accepts as any valid JSON.
func uniqueSubject(t *testing.T) string {
	t.Helper()
	return "runs.test." + t.Name()
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)

	want := messagequeue.RunStatusPayload{TurnID: "turn-1", ThreadID: "thread_1", RunID: "run_1", Status: "in_progress", Round: 1, Poll: 2}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var (
		mu       sync.Mutex
		received *messagequeue.RunStatusPayload
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := q.Subscribe(context.Background(), messagequeue.SubjectRunStatus, func(_ context.Context, _ string, d []byte) error {
		var got messagequeue.RunStatusPayload
		if err := json.Unmarshal(d, &got); err != nil {
			return err
		}
		if got.TurnID != want.TurnID {
			return nil // another test's event
		}
		mu.Lock()
		received = &got
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(context.Background(), messagequeue.SubjectRunStatus, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil || *received != want {
		t.Errorf("got %+v, want %+v", received, want)
	}
}

func TestQueue_CorrelationHeaders(t *testing.T) {
	q := testConnect(t)
	subject := uniqueSubject(t)

	var (
		mu       sync.Mutex
		gotReqID string
		gotTurn  string
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := q.Subscribe(context.Background(), subject, func(ctx context.Context, _ string, _ []byte) error {
		mu.Lock()
		gotReqID = logger.RequestID(ctx)
		gotTurn = logger.TurnID(ctx)
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithTurnID(logger.WithRequestID(context.Background(), "req-abc-123"), "turn-xyz")
	if err := q.Publish(ctx, subject, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotReqID != "req-abc-123" || gotTurn != "turn-xyz" {
		t.Errorf("correlation ids not propagated: request=%q turn=%q", gotReqID, gotTurn)
	}
}

func TestQueue_PublishRejectsInvalidPayload(t *testing.T) {
	q := testConnect(t)

	if err := q.Publish(context.Background(), messagequeue.SubjectRunComplete, []byte(`{"unexpected":1}`)); err == nil {
		t.Fatal("expected schema validation error")
	}
	if err := q.Publish(context.Background(), uniqueSubject(t), []byte(`not json`)); err == nil {
		t.Fatal("expected invalid JSON error")
	}
}
