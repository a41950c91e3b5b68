package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfhttp "github.com/Strob0t/NetBoxAssistant/internal/adapter/http"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/postgres"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/ws"
	"github.com/Strob0t/NetBoxAssistant/internal/service"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// execute dispatches subcommands; serve is the default.
func execute(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return runServe(ctx)
	case "chat":
		return runChat(ctx, os.Stdin, os.Stdout)
	case "mcp":
		return runMCP(ctx)
	case "schema":
		return runSchema(ctx, args)
	case "sync-tools":
		return runSyncTools(ctx)
	case "watch":
		return runWatch(ctx)
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: nbassist <command> [options]

Commands:
  serve        Run the HTTP API and WebSocket status stream (default)
  chat         Chat with the assistant on the terminal
  mcp          Serve the NetBox tools over MCP on stdio
  schema       List the NetBox GraphQL query fields
  sync-tools   Push the tool definitions to the configured assistant
  watch        Print run events published on NATS
  help         Show this help message

Configuration is read from nbassist.yaml, .env and the environment.
`)
}

func runServe(ctx context.Context) error {
	app, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg := app.cfg

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"poll_interval", cfg.Orchestrator.PollInterval,
		"poll_timeout", cfg.Orchestrator.PollTimeout,
		"max_parallel", cfg.Orchestrator.MaxParallel,
		"nats", cfg.NATS.URL != "",
		"postgres", cfg.Postgres.DSN != "",
	)

	// --- Events ---
	hub := ws.NewHub(cfg.Server.CORSOrigin)
	events := service.NewEventPublisher()
	events.SetHub(hub)
	if app.queue != nil {
		events.SetQueue(app.queue)
	}

	checks := map[string]func(context.Context) error{}

	// --- Audit log ---
	if cfg.Postgres.DSN != "" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		slog.Info("postgres connected, migrations applied")

		audit := postgres.NewAuditStore(pool)
		events.SetAudit(audit)
		app.orchestrator.SetAudit(audit)
		checks["postgres"] = pool.Ping
	}
	app.orchestrator.SetObserver(events)

	if app.queue != nil {
		checks["nats"] = func(context.Context) error {
			if !app.queue.Connected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Orchestrator: app.orchestrator,
		Tools:        app.tools,
		Checks:       checks,
	}
	r := cfhttp.NewRouter(handlers, cfhttp.RouterConfig{
		CORSOrigin:  cfg.Server.CORSOrigin,
		ServiceName: cfg.OTEL.ServiceName,
		WebSocket:   hub.HandleWS,
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A turn request blocks until the run is final.
		WriteTimeout: cfg.Orchestrator.TurnTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
