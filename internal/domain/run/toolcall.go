package run

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ToolInvocation is one tool call requested by the assistant.
type ToolInvocation struct {
	CallID    string          `json:"call_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Args decodes the JSON argument object. Empty arguments decode to an empty map.
func (i ToolInvocation) Args() (map[string]any, error) {
	args := map[string]any{}
	if len(i.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(i.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decode arguments for %s: %w", i.ToolName, err)
	}
	return args, nil
}

// ToolOutput is the serialized result of one invocation, submitted back
// verbatim. Success and error payloads share the type.
type ToolOutput struct {
	CallID   string        `json:"call_id"`
	ToolName string        `json:"tool_name"`
	Output   string        `json:"output"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	// Err is the classified cause of a failed call: it matches ErrUnknownTool
	// or ErrToolExecution under errors.Is. Nil on success.
	Err error `json:"-"`
}

// Batch is the set of invocations requested in one requires_action round.
type Batch struct {
	Round       int              `json:"round"`
	Invocations []ToolInvocation `json:"invocations"`
}

// ToolStatus holds the last success flag per tool name for one turn.
// A repeated tool overwrites its earlier flag.
type ToolStatus map[string]bool

// Record stores the latest outcome for name.
func (s ToolStatus) Record(name string, ok bool) {
	s[name] = ok
}

// Names returns the recorded tool names in sorted order.
func (s ToolStatus) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (s ToolStatus) Clone() ToolStatus {
	c := make(ToolStatus, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
