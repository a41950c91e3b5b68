package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Strob0t/NetBoxAssistant/internal/adapter/mcp"
	"github.com/Strob0t/NetBoxAssistant/internal/port/assistant"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
)

const version = "0.1.0"

// runMCP serves the tool registry over MCP. Stdout carries the protocol, so
// logs go to stderr.
func runMCP(ctx context.Context) error {
	app, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := mcp.NewServer(mcp.ServerConfig{Name: "nbassist", Version: version}, app.adapter)
	if err != nil {
		return err
	}
	return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
}

// runSchema prints the NetBox root query fields and their arguments.
func runSchema(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the fields as JSON")
	filter := fs.String("filter", "", "only show fields containing this substring")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	fields, err := app.netbox.AvailableQueries(ctx)
	if err != nil {
		return err
	}
	if *filter != "" {
		kept := fields[:0]
		for _, f := range fields {
			if strings.Contains(f.Name, *filter) {
				kept = append(kept, f)
			}
		}
		fields = kept
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tARGUMENTS\tDESCRIPTION")
	for _, f := range fields {
		argList := make([]string, 0, len(f.Args))
		for _, a := range f.Args {
			argList = append(argList, a.Name+": "+a.Type.String())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, strings.Join(argList, ", "), f.Description)
	}
	return w.Flush()
}

// runSyncTools replaces the function tools of the configured assistant with
// the local registry.
func runSyncTools(ctx context.Context) error {
	app, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	specs := functionSpecs(app.tools.Specs())
	if err := app.assistant.SyncTools(ctx, app.cfg.Assistant.AssistantID, specs); err != nil {
		return err
	}
	slog.Info("assistant tools synced", "assistant_id", app.cfg.Assistant.AssistantID, "tools", len(specs))
	return nil
}

func functionSpecs(specs []tool.Spec) []assistant.FunctionSpec {
	out := make([]assistant.FunctionSpec, 0, len(specs))
	for _, s := range specs {
		out = append(out, assistant.FunctionSpec{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		})
	}
	return out
}
