package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/promptbox/internal/adapter/cookbook"
	"github.com/Strob0t/promptbox/internal/adapter/fswatch"
	pbhttp "github.com/Strob0t/promptbox/internal/adapter/http"
	"github.com/Strob0t/promptbox/internal/adapter/mcp"
	pbnats "github.com/Strob0t/promptbox/internal/adapter/nats"
	"github.com/Strob0t/promptbox/internal/adapter/natskv"
	pbotel "github.com/Strob0t/promptbox/internal/adapter/otel"
	"github.com/Strob0t/promptbox/internal/adapter/ristretto"
	"github.com/Strob0t/promptbox/internal/adapter/tiered"
	"github.com/Strob0t/promptbox/internal/adapter/ws"
	"github.com/Strob0t/promptbox/internal/middleware"
	"github.com/Strob0t/promptbox/internal/port/cache"
	"github.com/Strob0t/promptbox/internal/port/launcher"
	"github.com/Strob0t/promptbox/internal/port/messagequeue"
	"github.com/Strob0t/promptbox/internal/resilience"
	"github.com/Strob0t/promptbox/internal/service"
)

const (
	idempotencyBucket = "PROMPTBOX_IDEMPOTENCY"
	shutdownTimeout   = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and MCP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cfgPath, closeLog, err := loadConfig(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	slog.Info("config loaded",
		"file", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"catalog_dir", cfg.Catalog.Dir,
		"nats", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	shutdownOTel, err := pbotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()
	metrics, err := pbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Catalog + launcher ---
	source := cookbook.New(cfg.Catalog.Dir)
	catalogSvc := service.NewCatalogService(source)
	if _, err := catalogSvc.Reload(ctx); err != nil {
		return err
	}

	term, killer, err := launcher.New(runtime.GOOS, launcher.Options{PreferredTerminal: cfg.Forks.LinuxTerminal})
	if err != nil {
		return fmt.Errorf("launcher: %w", err)
	}

	// --- Services ---
	fanout := service.NewFanoutService(cfg.Fanout.QueueSize)
	defer fanout.Close()

	forkSvc := service.NewForkService(catalogSvc, term, killer, fanout, service.ForkConfig{
		WorkDir:       cfg.Forks.WorkDir,
		LaunchTimeout: cfg.Forks.LaunchTimeout,
		KillTimeout:   cfg.Forks.KillTimeout,
		MaxRetained:   cfg.Forks.MaxRetained,
		RetentionTTL:  cfg.Forks.RetentionTTL,
	})
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	forkSvc.SetBreaker(breaker)
	forkSvc.SetMetrics(metrics)

	hub := ws.NewHub(fanout)
	catalogSvc.SetBroadcaster(hub)

	if err := pbotel.RegisterGauges(pbotel.Gauges{
		ActiveForks:   func() int64 { return int64(forkSvc.ActiveCount()) },
		Connections:   func() int64 { return int64(hub.ConnectionCount()) },
		FanoutDropped: fanout.Dropped,
		FanoutQueued:  fanout.Published,
	}); err != nil {
		return fmt.Errorf("otel gauges: %w", err)
	}

	// --- Idempotency store, shared over NATS when configured ---
	var idemStore cache.Cache
	var local *ristretto.Cache
	if cfg.Idempotency.Enabled {
		local, err = ristretto.New(cfg.Idempotency.MaxCostBytes)
		if err != nil {
			return fmt.Errorf("idempotency cache: %w", err)
		}
		defer local.Close()
		idemStore = local
	}

	if cfg.NATS.URL != "" {
		queue, err := pbnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		}()

		unsubMirror := fanout.Subscribe("nats-mirror", service.EventMirror(queue))
		defer unsubMirror()

		cancelReports, err := queue.Subscribe(ctx, messagequeue.SubjectForkReports, forkSvc.HandleReportMessage)
		if err != nil {
			return fmt.Errorf("report subscriber: %w", err)
		}
		defer cancelReports()

		if local != nil {
			kv, err := queue.KeyValue(ctx, idempotencyBucket, cfg.Idempotency.TTL)
			if err != nil {
				slog.Warn("shared idempotency store unavailable, using local cache only", "error", err)
			} else {
				idemStore = tiered.New(local, natskv.New(kv), cfg.Idempotency.TTL)
			}
		}
	}

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(pbotel.HTTPMiddleware(cfg.OTel.ServiceName))
	r.Use(pbhttp.SecurityHeaders)
	r.Use(pbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(pbhttp.Logger)

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()
	r.Use(limiter.Handler)

	var idempotency func(http.Handler) http.Handler
	if idemStore != nil {
		idempotency = middleware.Idempotency(idemStore, cfg.Idempotency.TTL)
	}

	handlers := &pbhttp.Handlers{
		Catalog:   catalogSvc,
		Forks:     forkSvc,
		Hub:       hub,
		Launcher:  term.Name(),
		Breaker:   breaker,
		BodyLimit: cfg.Server.BodyLimit,
	}
	pbhttp.MountRoutes(r, handlers, idempotency, hub.HandleWS)

	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Name:    "promptbox",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{Forks: forkSvc, Agents: catalogSvc})
		r.Handle("/mcp", mcpSrv.Handler())
		slog.Info("mcp server enabled", "path", "/mcp", "auth", cfg.MCP.APIKey != "")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "launcher", term.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.CloseAll()
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		return forkSvc.RunRetention(gctx, cfg.Forks.SweepInterval)
	})

	if cfg.Catalog.Watch {
		g.Go(func() error {
			watcher := &fswatch.Watcher{
				Paths:    source.WatchPaths(),
				Debounce: cfg.Catalog.WatchDebounce,
				OnChange: func(ctx context.Context) { reloadCatalog(ctx, catalogSvc) },
			}
			if err := watcher.Run(gctx); err != nil {
				slog.Warn("agent catalog hot reload disabled", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// reloadCatalog swaps in a fresh catalog after a file change. A broken edit
// keeps the previous catalog active.
func reloadCatalog(ctx context.Context, catalogSvc *service.CatalogService) {
	ctx, span := pbotel.StartReloadSpan(ctx, "watch")
	defer span.End()

	if _, err := catalogSvc.Reload(ctx); err != nil {
		span.RecordError(err)
		slog.Warn("agent catalog reload failed, keeping previous catalog", "error", err)
	}
}
