package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "nbassist"

// Metrics holds all assistant metric instruments.
type Metrics struct {
	TurnsStarted   metric.Int64Counter
	TurnsCompleted metric.Int64Counter
	TurnsFailed    metric.Int64Counter
	Rounds         metric.Int64Counter
	Polls          metric.Int64Counter
	ToolCalls      metric.Int64Counter
	TurnDuration   metric.Float64Histogram
	ToolDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.Meter(meterName))
}

// NewMetricsFrom creates all metric instruments on meter.
func NewMetricsFrom(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TurnsStarted, err = meter.Int64Counter("nbassist.turns.started",
		metric.WithDescription("Number of turns started"))
	if err != nil {
		return nil, err
	}

	m.TurnsCompleted, err = meter.Int64Counter("nbassist.turns.completed",
		metric.WithDescription("Number of turns whose run completed"))
	if err != nil {
		return nil, err
	}

	m.TurnsFailed, err = meter.Int64Counter("nbassist.turns.failed",
		metric.WithDescription("Number of turns that ended in an error"))
	if err != nil {
		return nil, err
	}

	m.Rounds, err = meter.Int64Counter("nbassist.rounds",
		metric.WithDescription("Number of requires_action rounds answered"))
	if err != nil {
		return nil, err
	}

	m.Polls, err = meter.Int64Counter("nbassist.polls",
		metric.WithDescription("Number of run status polls"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("nbassist.toolcalls",
		metric.WithDescription("Number of tool invocations"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("nbassist.turn.duration_seconds",
		metric.WithDescription("Turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ToolDuration, err = meter.Float64Histogram("nbassist.toolcall.duration_seconds",
		metric.WithDescription("Tool invocation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
