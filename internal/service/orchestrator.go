package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/NetBoxAssistant/internal/adapter/otel"
	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/domain"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/logger"
	"github.com/Strob0t/NetBoxAssistant/internal/port/assistant"
	"github.com/Strob0t/NetBoxAssistant/internal/port/auditstore"
)

// TurnRequest is one user message posted to an existing thread.
type TurnRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// ThreadStatus is the last known state of a thread's most recent turn.
type ThreadStatus struct {
	ThreadID   string         `json:"thread_id"`
	TurnID     string         `json:"turn_id"`
	RunID      string         `json:"run_id,omitempty"`
	LastStatus run.Status     `json:"last_status,omitempty"`
	Rounds     int            `json:"rounds"`
	Tools      run.ToolStatus `json:"tools"`
	Busy       bool           `json:"busy"`
	Error      string         `json:"error,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Orchestrator drives one assistant run per user turn: it posts the message,
// creates the run, polls it, answers every requires_action round with the
// outputs of a concurrently dispatched tool batch and finally collects the
// assistant's reply.
type Orchestrator struct {
	runs        assistant.RunService
	poller      *Poller
	dispatcher  *Dispatcher
	cfg         *config.Orchestrator
	assistantID string
	model       string
	observer    Observer
	audit       auditstore.Store
	metrics     *cfotel.Metrics

	mu      sync.Mutex // guards busy and threads
	busy    map[string]bool
	threads map[string]*ThreadStatus
}

// NewOrchestrator creates an Orchestrator with all dependencies.
func NewOrchestrator(
	runs assistant.RunService,
	dispatcher *Dispatcher,
	cfg *config.Orchestrator,
	asst *config.Assistant,
) *Orchestrator {
	return &Orchestrator{
		runs:        runs,
		poller:      NewPoller(runs, cfg.PollInterval, cfg.PollTimeout),
		dispatcher:  dispatcher,
		cfg:         cfg,
		assistantID: asst.AssistantID,
		model:       asst.Model,
		observer:    nopObserver{},
		busy:        make(map[string]bool),
		threads:     make(map[string]*ThreadStatus),
	}
}

// SetObserver sets the receiver of run status, tool result and turn events.
func (o *Orchestrator) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	o.observer = obs
	o.poller.observer = obs
}

// SetAudit sets the store History reads from.
func (o *Orchestrator) SetAudit(s auditstore.Store) {
	o.audit = s
}

// SetMetrics sets the OTEL metrics instruments.
func (o *Orchestrator) SetMetrics(m *cfotel.Metrics) {
	o.metrics = m
	o.poller.metrics = m
	o.dispatcher.SetMetrics(m)
}

// Dispatcher returns the tool dispatcher.
func (o *Orchestrator) Dispatcher() *Dispatcher {
	return o.dispatcher
}

// CreateThread opens a new conversation thread on the assistant.
func (o *Orchestrator) CreateThread(ctx context.Context) (string, error) {
	id, err := o.runs.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	slog.Info("thread created", append(logger.Attrs(ctx), "thread_id", id)...)
	return id, nil
}

// RunTurn posts req.Message to the thread and drives the resulting run to a
// final state. The returned Result is non-nil whenever the turn got as far as
// starting; on failure it carries the partial state next to the error.
// Errors wrap run.ErrPollTimeout, run.ErrRunFailed, run.ErrUnexpectedResponse,
// run.ErrMaxRounds, domain.ErrValidation or domain.ErrConflict.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*run.Result, error) {
	if strings.TrimSpace(req.ThreadID) == "" {
		return nil, fmt.Errorf("thread id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required: %w", domain.ErrValidation)
	}
	if !o.acquire(req.ThreadID) {
		return nil, fmt.Errorf("thread %s already has a turn in progress: %w", req.ThreadID, domain.ErrConflict)
	}
	defer o.release(req.ThreadID)

	turn := run.NewTurn(uuid.NewString(), time.Now())
	turn.Handle.ThreadID = req.ThreadID
	o.track(turn, "")

	ctx = logger.WithTurnID(ctx, turn.ID)
	ctx, span := cfotel.StartTurnSpan(ctx, turn.ID, req.ThreadID)
	defer span.End()

	if o.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
		defer cancel()
	}
	if dl, ok := ctx.Deadline(); ok {
		turn.TurnDeadline = dl
	}
	if o.metrics != nil {
		o.metrics.TurnsStarted.Add(ctx, 1)
	}

	msgs, err := o.drive(ctx, turn, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("run.id", turn.Handle.RunID),
		attribute.String("run.status", string(turn.LastStatus)),
		attribute.Int("turn.rounds", turn.Round),
	)
	return o.finish(ctx, turn, msgs, err), err
}

// drive runs the Created → Polling → RequiresAction → … state machine.
func (o *Orchestrator) drive(ctx context.Context, turn *run.Turn, message string) ([]run.Message, error) {
	if err := o.runs.AddUserMessage(ctx, turn.Handle.ThreadID, message); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	created, err := o.runs.CreateRun(ctx, turn.Handle.ThreadID, o.assistantID, o.model)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	turn.Handle = created.Handle
	turn.LastStatus = created.Status
	o.track(turn, "")
	slog.Info("run created", append(logger.Attrs(ctx),
		"thread_id", turn.Handle.ThreadID, "run_id", turn.Handle.RunID, "model", turn.Handle.Model)...)

	for {
		snap, err := o.poller.Poll(ctx, turn)
		if err != nil {
			return nil, o.contextError(ctx, err)
		}
		o.track(turn, "")

		switch snap.Status {
		case run.StatusRequiresAction:
			if err := o.answer(ctx, turn, snap); err != nil {
				return nil, err
			}
		case run.StatusCompleted:
			return o.collect(ctx, turn)
		default:
			return nil, &run.FailedError{Status: snap.Status, LastError: snap.LastError}
		}
	}
}

// answer executes one requires_action round and submits its outputs.
func (o *Orchestrator) answer(ctx context.Context, turn *run.Turn, snap run.Snapshot) error {
	if turn.Round >= o.cfg.MaxRounds {
		return fmt.Errorf("run %s asked for round %d: %w", turn.Handle.RunID, turn.Round+1, run.ErrMaxRounds)
	}
	turn.Round++

	batch := run.Batch{Round: turn.Round, Invocations: snap.Action}
	if err := batch.Validate(); err != nil {
		return err
	}

	ctx, span := cfotel.StartRoundSpan(ctx, turn.Handle.RunID, turn.Round, len(batch.Invocations))
	defer span.End()
	if o.metrics != nil {
		o.metrics.Rounds.Add(ctx, 1)
	}

	outputs := o.dispatcher.Dispatch(ctx, batch)
	for _, out := range outputs {
		turn.Tools.Record(out.ToolName, out.Success)
		o.observer.ToolResult(ctx, turn, out)
	}
	if err := batch.Complete(outputs); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return o.contextError(ctx, err)
	}

	if _, err := o.runs.SubmitToolOutputs(ctx, turn.Handle, outputs); err != nil {
		return o.contextError(ctx, fmt.Errorf("submit tool outputs: %w", err))
	}
	slog.Info("tool outputs submitted", append(logger.Attrs(ctx),
		"run_id", turn.Handle.RunID, "round", turn.Round, "outputs", len(outputs))...)
	return nil
}

// collect returns the assistant messages produced by this run, oldest first.
func (o *Orchestrator) collect(ctx context.Context, turn *run.Turn) ([]run.Message, error) {
	all, err := o.runs.ListMessages(ctx, turn.Handle.ThreadID, turn.Handle.RunID)
	if err != nil {
		return nil, o.contextError(ctx, fmt.Errorf("list messages: %w", err))
	}
	msgs := make([]run.Message, 0, len(all))
	for _, m := range all {
		if m.Role == run.RoleAssistant && m.RunID == turn.Handle.RunID {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt < msgs[j].CreatedAt })
	return msgs, nil
}

// contextError annotates an error caused by the turn deadline.
func (o *Orchestrator) contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("turn deadline of %s exceeded: %w", o.cfg.TurnTimeout, err)
	}
	return err
}

func (o *Orchestrator) finish(ctx context.Context, turn *run.Turn, msgs []run.Message, err error) *run.Result {
	res := turn.Result(msgs, err)
	o.track(turn, res.Error)

	// Reporting outlives the turn deadline.
	ctx = context.WithoutCancel(ctx)
	if o.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("status", string(res.Status)))
		if err == nil {
			o.metrics.TurnsCompleted.Add(ctx, 1, attrs)
		} else {
			o.metrics.TurnsFailed.Add(ctx, 1, attrs)
		}
		o.metrics.TurnDuration.Record(ctx, time.Since(turn.StartedAt).Seconds(), attrs)
	}
	o.observer.TurnDone(ctx, res)
	return res
}

func (o *Orchestrator) acquire(threadID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy[threadID] {
		return false
	}
	o.busy[threadID] = true
	return true
}

func (o *Orchestrator) release(threadID string) {
	o.mu.Lock()
	delete(o.busy, threadID)
	if st, ok := o.threads[threadID]; ok {
		st.Busy = false
	}
	o.mu.Unlock()
}

func (o *Orchestrator) track(turn *run.Turn, errMsg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.threads[turn.Handle.ThreadID] = &ThreadStatus{
		ThreadID:   turn.Handle.ThreadID,
		TurnID:     turn.ID,
		RunID:      turn.Handle.RunID,
		LastStatus: turn.LastStatus,
		Rounds:     turn.Round,
		Tools:      turn.Tools.Clone(),
		Busy:       o.busy[turn.Handle.ThreadID],
		Error:      errMsg,
		UpdatedAt:  time.Now(),
	}
}

// Status returns the state of the thread's most recent turn.
func (o *Orchestrator) Status(threadID string) (ThreadStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.threads[threadID]
	if !ok {
		return ThreadStatus{}, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	cp := *st
	cp.Tools = st.Tools.Clone()
	return cp, nil
}

// Statuses returns the state of every thread seen so far, most recent first.
func (o *Orchestrator) Statuses() []ThreadStatus {
	o.mu.Lock()
	out := make([]ThreadStatus, 0, len(o.threads))
	for _, st := range o.threads {
		cp := *st
		cp.Tools = st.Tools.Clone()
		out = append(out, cp)
	}
	o.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// History returns the most recent audited turns of a thread.
func (o *Orchestrator) History(ctx context.Context, threadID string, limit int) ([]run.Result, error) {
	if o.audit == nil {
		return nil, fmt.Errorf("turn history requires the audit store: %w", domain.ErrNotFound)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return o.audit.RecentTurns(ctx, threadID, limit)
}
