// Package tool defines the data-lookup tools the assistant may call and the
// adapter that executes them without ever failing the caller.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Spec describes a tool to the assistant.
type Spec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Result is the payload a tool hands back to the assistant. A tool reports
// "nothing found" or bad input through Error and returns a nil error; the
// error return is reserved for the lookup itself failing.
type Result struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Tool is one callable lookup.
type Tool interface {
	Spec() Spec
	Invoke(ctx context.Context, args json.RawMessage) (Result, error)
}

// Errorf builds an error Result.
func Errorf(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Func adapts a function with typed arguments into a Tool. The argument
// schema is reflected from A.
type Func[A any] struct {
	name string
	desc string
	fn   func(ctx context.Context, args A) (Result, error)
}

// New returns a Tool that decodes its JSON arguments into A before calling fn.
func New[A any](name, description string, fn func(ctx context.Context, args A) (Result, error)) *Func[A] {
	return &Func[A]{name: name, desc: description, fn: fn}
}

// Spec implements Tool.
func (f *Func[A]) Spec() Spec {
	return Spec{Name: f.name, Description: f.desc, Parameters: GenerateSchema[A]()}
}

// Invoke implements Tool.
func (f *Func[A]) Invoke(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args A
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return Result{}, &ArgumentError{Tool: f.name, Err: err}
		}
	}
	return f.fn(ctx, args)
}
