package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/service"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Tools        *tool.Registry
	// Checks reports dependency health by name; a nil error means healthy.
	Checks map[string]func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports service health. Any failing check turns the status into
// "degraded" with a 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for name, check := range h.Checks {
		if err := check(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

type threadResponse struct {
	ThreadID string `json:"thread_id"`
}

// CreateThread handles POST /api/v1/threads.
func (h *Handlers) CreateThread(w http.ResponseWriter, r *http.Request) {
	id, err := h.Orchestrator.CreateThread(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, threadResponse{ThreadID: id})
}

type turnRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	Text   string      `json:"text"`
	Result *run.Result `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// RunTurn handles POST /api/v1/threads/{threadID}/turns. The request blocks
// until the run is final; failed turns still return the partial result.
func (h *Handlers) RunTurn(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[turnRequest](w, r)
	if !ok {
		return
	}

	res, err := h.Orchestrator.RunTurn(r.Context(), service.TurnRequest{
		ThreadID: urlParam(r, "threadID"),
		Message:  req.Message,
	})
	if err != nil {
		if res == nil {
			writeDomainError(w, err, "thread not found")
			return
		}
		writeJSON(w, errorStatus(err), turnResponse{Text: res.Text(), Result: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Text: res.Text(), Result: res})
}

// ThreadStatus handles GET /api/v1/threads/{threadID}/status.
func (h *Handlers) ThreadStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Orchestrator.Status(urlParam(r, "threadID"))
	if err != nil {
		writeDomainError(w, err, "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ThreadHistory handles GET /api/v1/threads/{threadID}/turns?limit=N.
func (h *Handlers) ThreadHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := h.Orchestrator.History(r.Context(), urlParam(r, "threadID"), limit)
	if err != nil {
		writeDomainError(w, err, "turn history is not available")
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

// ListTools handles GET /api/v1/tools.
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Tools.Specs())
}

// ToolsStatus handles GET /api/v1/tools/status: the tool outcomes and last
// poll status of every thread's most recent turn.
func (h *Handlers) ToolsStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Orchestrator.Statuses())
}
