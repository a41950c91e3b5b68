package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cfnats "github.com/Strob0t/NetBoxAssistant/internal/adapter/nats"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/natskv"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/netbox"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/openai"
	cfotel "github.com/Strob0t/NetBoxAssistant/internal/adapter/otel"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/ristretto"
	"github.com/Strob0t/NetBoxAssistant/internal/adapter/tiered"
	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/logger"
	"github.com/Strob0t/NetBoxAssistant/internal/port/cache"
	"github.com/Strob0t/NetBoxAssistant/internal/resilience"
	"github.com/Strob0t/NetBoxAssistant/internal/service"
	"github.com/Strob0t/NetBoxAssistant/internal/tool"
	nbtools "github.com/Strob0t/NetBoxAssistant/internal/tool/netbox"
)

// app holds the components shared by all subcommands.
type app struct {
	cfg          *config.Config
	netbox       *netbox.Client
	tools        *tool.Registry
	adapter      *tool.Adapter
	assistant    *openai.Client
	orchestrator *service.Orchestrator
	queue        *cfnats.Queue // nil without NATS

	closers []func()
}

// newApp loads configuration, installs the logger and wires the NetBox
// client, the tool registry and the orchestrator. Logs go to logOut.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.NewWriter(logOut, cfg.Logging)
	slog.SetDefault(log)

	a := &app{cfg: cfg}
	a.closers = append(a.closers, closeLog.Close)

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := shutdownOTEL(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	})

	if cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.queue = q
		a.closers = append(a.closers, func() { _ = q.Close() })
	}

	opts := []netbox.Option{
		netbox.WithBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)),
	}
	if cfg.Cache.Enabled {
		c, err := a.queryCache(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("cache: %w", err)
		}
		opts = append(opts, netbox.WithCache(c, cfg.Cache.TTL))
	}
	a.netbox = netbox.NewClient(cfg.NetBox, opts...)

	a.tools, err = tool.NewRegistry(nbtools.Tools(a.netbox)...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("tools: %w", err)
	}
	a.adapter = tool.NewAdapter(a.tools, cfg.Orchestrator.ToolTimeout)

	a.assistant = openai.New(cfg.Assistant)
	dispatcher := service.NewDispatcher(a.adapter, cfg.Orchestrator.MaxParallel)
	a.orchestrator = service.NewOrchestrator(a.assistant, dispatcher, &cfg.Orchestrator, &cfg.Assistant)

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.orchestrator.SetMetrics(metrics)

	return a, nil
}

// queryCache builds the in-process L1 cache, backed by a NATS KV L2 when
// NATS is configured.
func (a *app) queryCache(ctx context.Context) (cache.Cache, error) {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, l1.Close)
	if a.queue == nil {
		return l1, nil
	}

	l2, err := natskv.Open(ctx, a.queue.JetStream(), a.cfg.Cache.L2Bucket, a.cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	slog.Info("query cache enabled", "l1_mb", a.cfg.Cache.L1MaxSizeMB, "l2_bucket", a.cfg.Cache.L2Bucket)
	return tiered.New(l1, l2, a.cfg.Cache.TTL), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
