package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Strob0t/NetBoxAssistant/internal/domain/run"
	"github.com/Strob0t/NetBoxAssistant/internal/service"
)

const chatIntro = "Hello! I'm your Netbox AI Assistant. You can ask me about IP addresses, devices, interfaces, " +
	"locations and more. Start by asking my what I have in my toolbox."

// runChat opens a thread and relays each input line as one turn.
// Logs go to stderr so the conversation stays readable.
func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	app, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	threadID, err := app.orchestrator.CreateThread(ctx)
	if err != nil {
		return err
	}
	return chatLoop(ctx, app.orchestrator, threadID, in, out, term.IsTerminal(int(os.Stdin.Fd())))
}

// turnRunner is the part of the orchestrator the REPL needs.
type turnRunner interface {
	RunTurn(ctx context.Context, req service.TurnRequest) (*run.Result, error)
}

func chatLoop(ctx context.Context, orch turnRunner, threadID string, in io.Reader, out io.Writer, interactive bool) error {
	fmt.Fprintln(out, chatIntro)

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := orch.RunTurn(ctx, service.TurnRequest{ThreadID: threadID, Message: line})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintln(out, res.Text())
		if len(res.Tools) > 0 {
			fmt.Fprintf(out, "[tools: %s]\n", toolSummary(res.Tools))
		}
	}
}

// toolSummary renders tool outcomes as "name ok, name failed".
func toolSummary(tools run.ToolStatus) string {
	parts := make([]string, 0, len(tools))
	for _, name := range tools.Names() {
		state := "ok"
		if !tools[name] {
			state = "failed"
		}
		parts = append(parts, name+" "+state)
	}
	return strings.Join(parts, ", ")
}
