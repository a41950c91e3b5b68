package run

import "fmt"

// Validate checks that the batch is non-empty and every call ID is present and unique.
func (b *Batch) Validate() error {
	if len(b.Invocations) == 0 {
		return fmt.Errorf("round %d requires action without tool calls: %w", b.Round, ErrUnexpectedResponse)
	}
	seen := make(map[string]bool, len(b.Invocations))
	for i, inv := range b.Invocations {
		if inv.CallID == "" {
			return fmt.Errorf("tool call %d has no id: %w", i, ErrUnexpectedResponse)
		}
		if inv.ToolName == "" {
			return fmt.Errorf("tool call %s has no function name: %w", inv.CallID, ErrUnexpectedResponse)
		}
		if seen[inv.CallID] {
			return fmt.Errorf("duplicate tool call id %s: %w", inv.CallID, ErrUnexpectedResponse)
		}
		seen[inv.CallID] = true
	}
	return nil
}

// Complete checks that outputs answer every invocation exactly once and nothing else.
func (b *Batch) Complete(outputs []ToolOutput) error {
	if len(outputs) != len(b.Invocations) {
		return fmt.Errorf("%d outputs for %d calls: %w", len(outputs), len(b.Invocations), ErrIncompleteBatch)
	}
	want := make(map[string]bool, len(b.Invocations))
	for _, inv := range b.Invocations {
		want[inv.CallID] = true
	}
	for _, out := range outputs {
		if !want[out.CallID] {
			return fmt.Errorf("output for unexpected or repeated call %q: %w", out.CallID, ErrIncompleteBatch)
		}
		delete(want, out.CallID)
	}
	return nil
}
