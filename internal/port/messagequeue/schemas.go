package messagequeue

// RunStatusPayload is the schema for runs.status messages.
type RunStatusPayload struct {
	TurnID   string `json:"turn_id"`
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Round    int    `json:"round"`
	Poll     int    `json:"poll"`
}

// ToolResultPayload is the schema for runs.toolcall.result messages.
type ToolResultPayload struct {
	TurnID     string `json:"turn_id"`
	ThreadID   string `json:"thread_id"`
	RunID      string `json:"run_id"`
	Round      int    `json:"round"`
	CallID     string `json:"call_id"`
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
}

// RunCompletePayload is the schema for runs.complete messages.
type RunCompletePayload struct {
	TurnID   string          `json:"turn_id"`
	ThreadID string          `json:"thread_id"`
	RunID    string          `json:"run_id"`
	Status   string          `json:"status"`
	Rounds   int             `json:"rounds"`
	Tools    map[string]bool `json:"tools"`
	Error    string          `json:"error,omitempty"`
}
