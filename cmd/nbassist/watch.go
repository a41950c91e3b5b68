package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Strob0t/NetBoxAssistant/internal/port/messagequeue"
)

// runWatch prints every run event published on NATS until interrupted.
func runWatch(ctx context.Context) error {
	app, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.queue == nil {
		return errors.New("watch requires NATS_URL")
	}

	cancel, err := app.queue.Subscribe(ctx, messagequeue.SubjectAll, func(_ context.Context, subject string, data []byte) error {
		_, err := fmt.Fprintf(os.Stdout, "%s %s\n", subject, data)
		return err
	})
	if err != nil {
		return err
	}
	defer cancel()

	<-ctx.Done()
	return nil
}
