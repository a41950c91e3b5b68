package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Strob0t/NetBoxAssistant/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestNewWriterServiceAttr(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWriter(&buf, config.Logging{Level: "info", Service: "nb"})
	l.Info("hello", "run_id", "run_1")
	closer.Close()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if rec["service"] != "nb" {
		t.Errorf("expected service=nb, got %v", rec["service"])
	}
	if rec["run_id"] != "run_1" {
		t.Errorf("expected run_id=run_1, got %v", rec["run_id"])
	}
}

func TestNewWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWriter(&buf, config.Logging{Level: "warn"})
	l.Info("dropped")
	closer.Close()
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"ERROR", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestContextIDs(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
	if got := len(Attrs(ctx)); got != 0 {
		t.Errorf("expected no attrs, got %d", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTurnID(ctx, "turn-9")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := TurnID(ctx); got != "turn-9" {
		t.Errorf("expected turn-9, got %q", got)
	}
	if got := len(Attrs(ctx)); got != 2 {
		t.Errorf("expected 2 attrs, got %d", got)
	}
}
