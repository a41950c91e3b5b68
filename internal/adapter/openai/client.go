// Package openai implements the assistant ports on the OpenAI / Azure OpenAI
// Assistants API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	oai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/port/assistant"
	"github.com/Strob0t/NetBoxAssistant/internal/resilience"
)

const messagePageSize = 100

// Client talks to the threads/runs/messages endpoints. Safe for concurrent use.
type Client struct {
	api   *oai.Client
	retry resilience.RetryPolicy
}

var (
	_ assistant.RunService = (*Client)(nil)
	_ assistant.ToolSyncer = (*Client)(nil)
)

// New creates a client for cfg. With cfg.Azure the endpoint is an Azure
// OpenAI resource URL and cfg.APIVersion is sent on every request.
func New(cfg config.Assistant) *Client {
	var cc oai.ClientConfig
	if cfg.Azure {
		cc = oai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			cc.APIVersion = cfg.APIVersion
		}
	} else {
		cc = oai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			cc.BaseURL = cfg.Endpoint
		}
	}
	cc.HTTPClient = &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &Client{
		api: oai.NewClientWithConfig(cc),
		retry: resilience.RetryPolicy{
			MaxTries:        4,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Retryable:       Transient,
			OnRetry: func(err error, wait time.Duration) {
				slog.Warn("assistant request failed, retrying", "error", err, "wait", wait)
			},
		},
	}
}

// CreateThread implements assistant.RunService.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	th, err := c.api.CreateThread(ctx, oai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if th.ID == "" {
		return "", fmt.Errorf("create thread: empty id: %w", run.ErrUnexpectedResponse)
	}
	return th.ID, nil
}

// AddUserMessage implements assistant.RunService.
func (c *Client) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, oai.MessageRequest{
		Role:    oai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("create message on %s: %w", threadID, err)
	}
	return nil
}

// CreateRun implements assistant.RunService.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID, model string) (run.Snapshot, error) {
	r, err := c.api.CreateRun(ctx, threadID, oai.RunRequest{AssistantID: assistantID, Model: model})
	if err != nil {
		return run.Snapshot{}, fmt.Errorf("create run on %s: %w", threadID, err)
	}
	return toSnapshot(r, run.Handle{ThreadID: threadID})
}

// RetrieveRun implements assistant.RunService. Transient failures are retried.
func (c *Client) RetrieveRun(ctx context.Context, h run.Handle) (run.Snapshot, error) {
	r, err := resilience.Retry(ctx, c.retry, func() (oai.Run, error) {
		return c.api.RetrieveRun(ctx, h.ThreadID, h.RunID)
	})
	if err != nil {
		return run.Snapshot{}, fmt.Errorf("retrieve run %s: %w", h.RunID, err)
	}
	return toSnapshot(r, h)
}

// SubmitToolOutputs implements assistant.RunService.
func (c *Client) SubmitToolOutputs(ctx context.Context, h run.Handle, outputs []run.ToolOutput) (run.Snapshot, error) {
	req := oai.SubmitToolOutputsRequest{ToolOutputs: make([]oai.ToolOutput, 0, len(outputs))}
	for _, out := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, oai.ToolOutput{ToolCallID: out.CallID, Output: out.Output})
	}
	r, err := c.api.SubmitToolOutputs(ctx, h.ThreadID, h.RunID, req)
	if err != nil {
		return run.Snapshot{}, fmt.Errorf("submit tool outputs to %s: %w", h.RunID, err)
	}
	return toSnapshot(r, h)
}

// ListMessages implements assistant.RunService. Pages are fetched oldest
// first, filtered server-side by run.
func (c *Client) ListMessages(ctx context.Context, threadID, runID string) ([]run.Message, error) {
	limit := messagePageSize
	order := "asc"
	var after *string
	var msgs []run.Message

	for {
		page, err := resilience.Retry(ctx, c.retry, func() (oai.MessagesList, error) {
			return c.api.ListMessage(ctx, threadID, &limit, &order, after, nil, &runID)
		})
		if err != nil {
			return nil, fmt.Errorf("list messages of %s: %w", threadID, err)
		}
		for _, m := range page.Messages {
			msgs = append(msgs, toMessage(m))
		}
		if !page.HasMore || page.LastID == nil || *page.LastID == "" {
			return msgs, nil
		}
		after = page.LastID
	}
}

// SyncTools replaces the function tools of the assistant with specs. Other
// tool kinds (code interpreter, file search) are kept.
func (c *Client) SyncTools(ctx context.Context, assistantID string, specs []assistant.FunctionSpec) error {
	current, err := c.api.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return fmt.Errorf("retrieve assistant %s: %w", assistantID, err)
	}

	tools := make([]oai.AssistantTool, 0, len(current.Tools)+len(specs))
	for _, t := range current.Tools {
		if t.Type != oai.AssistantToolTypeFunction {
			tools = append(tools, t)
		}
	}
	for _, s := range specs {
		tools = append(tools, oai.AssistantTool{
			Type: oai.AssistantToolTypeFunction,
			Function: &oai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}

	if _, err := c.api.ModifyAssistant(ctx, assistantID, oai.AssistantRequest{
		Model: current.Model,
		Tools: tools,
	}); err != nil {
		return fmt.Errorf("modify assistant %s: %w", assistantID, err)
	}
	slog.Info("assistant tools synced", "assistant_id", assistantID, "functions", len(specs))
	return nil
}

func toSnapshot(r oai.Run, known run.Handle) (run.Snapshot, error) {
	h := run.Handle{ThreadID: r.ThreadID, RunID: r.ID, Model: r.Model}
	if h.ThreadID == "" {
		h.ThreadID = known.ThreadID
	}
	if h.RunID == "" {
		h.RunID = known.RunID
	}
	snap := run.Snapshot{Handle: h, Status: run.Status(r.Status)}

	if h.RunID == "" || snap.Status == "" {
		return snap, fmt.Errorf("run without id or status: %w", run.ErrUnexpectedResponse)
	}
	if r.LastError != nil {
		snap.LastError = &run.LastError{Code: string(r.LastError.Code), Message: r.LastError.Message}
	}
	if snap.Status != run.StatusRequiresAction {
		return snap, nil
	}

	if r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return snap, fmt.Errorf("run %s requires action without tool outputs request: %w", h.RunID, run.ErrUnexpectedResponse)
	}
	for _, tc := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
		snap.Action = append(snap.Action, run.ToolInvocation{
			CallID:    tc.ID,
			ToolName:  tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return snap, nil
}

func toMessage(m oai.Message) run.Message {
	var parts []string
	for _, c := range m.Content {
		if c.Type == "text" && c.Text != nil {
			parts = append(parts, c.Text.Value)
		}
	}
	msg := run.Message{
		ID:        m.ID,
		Role:      m.Role,
		Text:      strings.Join(parts, "\n"),
		CreatedAt: int64(m.CreatedAt),
	}
	if m.RunID != nil {
		msg.RunID = *m.RunID
	}
	return msg
}

// Transient reports whether err is a rate limit, a server-side failure or a
// transport error, all of which are worth retrying for idempotent calls.
func Transient(err error) bool {
	var apiErr *oai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *oai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
