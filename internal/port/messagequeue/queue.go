// Package messagequeue defines the port for publishing run lifecycle events.
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue publishes run events and lets tooling follow them.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on subject (wildcards allowed).
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	Close() error
}

// Subjects published during orchestration.
const (
	SubjectRunStatus   = "runs.status"          // every poll observation
	SubjectToolResult  = "runs.toolcall.result" // one per dispatched invocation
	SubjectRunComplete = "runs.complete"        // turn finished, successfully or not
	SubjectAll         = "runs.>"
)
