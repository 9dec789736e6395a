// Package main is the agentcored composition root: it wires the memory
// engine (embedding, vector index, store, tier engine, promotion engine)
// and the tool orchestrator (registry, classifier, executor) through a
// single internal/di container, then runs the promotion cron schedule and
// a metrics/health HTTP endpoint until interrupted. Run with -mcp to serve
// memory_search/tool_invoke over MCP stdio instead, for embedding this
// binary as a subprocess of an MCP host.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/di"
	"github.com/magray-run/agentcore/internal/embed"
	"github.com/magray-run/agentcore/internal/health"
	"github.com/magray-run/agentcore/internal/logging"
	"github.com/magray-run/agentcore/internal/mcp"
	"github.com/magray-run/agentcore/internal/orchestrator"
	"github.com/magray-run/agentcore/internal/profiling"
	"github.com/magray-run/agentcore/internal/promotion"
	"github.com/magray-run/agentcore/internal/store"
	"github.com/magray-run/agentcore/internal/tier"
	"github.com/magray-run/agentcore/internal/tool"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "root directory for persisted tier state and tool manifests")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics and /healthz on")
	mcpStdio := flag.Bool("mcp", false, "run as an MCP stdio server instead of the promotion/metrics daemon")
	cpuProfile := flag.String("cpu-profile", "", "write a CPU profile to this path for the process lifetime")
	flag.Parse()

	if *cpuProfile != "" {
		profiler := profiling.NewProfiler()
		stopCPU, err := profiler.StartCPU(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentcored: cpu profile: %v\n", err)
			os.Exit(1)
		}
		defer stopCPU()
	}

	if *mcpStdio {
		cleanup, err := logging.SetupMCPMode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentcored: mcp logging setup: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
	} else {
		logger, cleanup, err := logging.Setup(logging.DefaultConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentcored: logging setup: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		slog.SetDefault(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dataDir, *metricsAddr, *mcpStdio); err != nil {
		slog.Error("agentcored: fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, metricsAddr string, mcpStdio bool) error {
	cfg := config.Default()
	cfg.Store.DataDir = dataDir
	cfg.Tool.ManifestDir = filepath.Join(dataDir, "tools")

	promReg := prometheus.NewRegistry()
	container := buildContainer(ctx, cfg, promReg)
	if cycles := container.Validate(); len(cycles) > 0 {
		return fmt.Errorf("agentcored: dependency cycles in composition graph: %+v", cycles)
	}

	st, err := di.Resolve[*store.Store](container, "store")
	if err != nil {
		return err
	}
	defer st.Close()

	tierEngine, err := di.Resolve[*tier.Engine](container, "tier.engine")
	if err != nil {
		return err
	}
	promotionEngine, err := di.Resolve[*promotion.Engine](container, "promotion.engine")
	if err != nil {
		return err
	}
	tierEngine.SetPromoter(promotionEngine)

	monitor, err := di.Resolve[*health.Monitor](container, "health.monitor")
	if err != nil {
		return err
	}
	metrics, err := di.Resolve[*health.Registry](container, "health.registry")
	if err != nil {
		return err
	}

	toolRegistry, err := di.Resolve[*tool.Registry](container, "tool.registry")
	if err != nil {
		return err
	}
	if err := wireTools(toolRegistry, cfg.Tool); err != nil {
		return err
	}

	if mcpStdio {
		server, err := mcp.NewServer(tierEngine, toolRegistry)
		if err != nil {
			return err
		}
		return server.Serve(ctx, "stdio")
	}

	executor, err := di.Resolve[*orchestrator.Executor](container, "orchestrator.executor")
	if err != nil {
		return err
	}
	classifier, err := di.Resolve[*orchestrator.HybridClassifier](container, "orchestrator.classifier")
	if err != nil {
		return err
	}
	_ = classifier // classifies inbound turns; wired for callers embedding this binary as a library entry point

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Promotion.CronSchedule, func() {
		runPromotionCycle(ctx, promotionEngine, monitor, metrics)
	}); err != nil {
		return fmt.Errorf("agentcored: schedule promotion cycle: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(promReg, monitor)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("agentcored: metrics server", slog.String("error", err.Error()))
		}
	}()

	slog.Info("agentcored: ready",
		slog.String("data_dir", dataDir),
		slog.String("metrics_addr", metricsAddr),
		slog.Int("max_concurrent_tools", cfg.Orchestrator.MaxConcurrentTools),
	)
	_ = executor // the executor is driven by whatever embeds agentcored as a library; this binary's own job is lifecycle + scheduling

	<-ctx.Done()
	slog.Info("agentcored: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildContainer registers every component's factory. Factories resolve
// their own dependencies lazily through c, and deps lists the edges
// Validate walks before anything is built.
func buildContainer(ctx context.Context, cfg config.Config, promReg *prometheus.Registry) *di.Container {
	c := di.New()

	c.Register("store", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return store.Open(cfg.Store)
	})

	c.Register("embedder", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return embed.NewEmbedder(ctx, cfg.Embedding)
	})

	c.Register("reranker", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return embed.HeuristicReranker{}, nil
	})

	c.Register("tier.engine", di.Singleton, []string{"store", "embedder", "reranker"}, func(c *di.Container) (any, error) {
		st, err := di.Resolve[*store.Store](c, "store")
		if err != nil {
			return nil, err
		}
		embedder, err := di.Resolve[embed.Embedder](c, "embedder")
		if err != nil {
			return nil, err
		}
		reranker, err := di.Resolve[embed.RerankerProvider](c, "reranker")
		if err != nil {
			return nil, err
		}
		return tier.NewEngine(st, embedder, reranker, cfg.VectorIndex, cfg.Tier)
	})

	c.Register("promotion.engine", di.Singleton, []string{"store", "tier.engine"}, func(c *di.Container) (any, error) {
		st, err := di.Resolve[*store.Store](c, "store")
		if err != nil {
			return nil, err
		}
		te, err := di.Resolve[*tier.Engine](c, "tier.engine")
		if err != nil {
			return nil, err
		}
		return promotion.NewEngine(st, te, cfg.Promotion)
	})

	c.Register("health.monitor", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return health.NewMonitor(cfg.Health), nil
	})

	c.Register("health.registry", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return health.NewRegistry(promReg), nil
	})

	c.Register("tool.registry", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return tool.NewRegistry(ctx, cfg.Tool)
	})

	c.Register("orchestrator.classifier", di.Singleton, nil, func(_ *di.Container) (any, error) {
		return orchestrator.NewHybridClassifier(nil, cfg.Orchestrator.ClassifierCacheSize), nil
	})

	c.Register("orchestrator.executor", di.Singleton, []string{"tool.registry"}, func(c *di.Container) (any, error) {
		reg, err := di.Resolve[*tool.Registry](c, "tool.registry")
		if err != nil {
			return nil, err
		}
		return orchestrator.NewExecutor(reg, cfg.Orchestrator), nil
	})

	return c
}

// wireTools registers the one built-in native tool and loads any
// externally declared manifests from cfg.ManifestDir, dispatching mcp-kind
// manifests to their entry_point and registering wasm-kind manifests as
// interface-only stubs.
func wireTools(reg *tool.Registry, cfg config.ToolConfig) error {
	if err := reg.RegisterNative(tool.DefaultShellExecManifest(), tool.NewShellExecNativeFunc(cfg)); err != nil {
		return fmt.Errorf("agentcored: register shell_exec: %w", err)
	}

	manifests, err := tool.LoadManifestDir(cfg.ManifestDir)
	if err != nil {
		return fmt.Errorf("agentcored: load manifests: %w", err)
	}
	for _, m := range manifests {
		switch m.Kind {
		case tool.KindMCP:
			if err := reg.RegisterMCP(m, tool.NewMCPDispatcher(nil)); err != nil {
				slog.Warn("agentcored: skip mcp manifest", slog.String("tool", m.Name), slog.String("error", err.Error()))
			}
		case tool.KindWasm:
			if err := reg.RegisterWasm(m); err != nil {
				slog.Warn("agentcored: skip wasm manifest", slog.String("tool", m.Name), slog.String("error", err.Error()))
			}
		case tool.KindNative:
			slog.Warn("agentcored: skipping externally declared native manifest; native tools are wired in code, not loaded from disk", slog.String("tool", m.Name))
		}
	}
	return nil
}

func runPromotionCycle(ctx context.Context, p *promotion.Engine, monitor *health.Monitor, metrics *health.Registry) {
	started := time.Now()
	if _, err := p.RunCycle(ctx); err != nil {
		monitor.RecordFailure(health.ComponentPromotion, time.Since(started), err)
		metrics.ObserveError(health.ComponentPromotion, "promotion_cycle_failed")
		slog.Error("agentcored: promotion cycle failed", slog.String("error", err.Error()))
		return
	}
	monitor.RecordSuccess(health.ComponentPromotion, time.Since(started))
	metrics.ObserveLatency(health.ComponentPromotion, time.Since(started))
}

func metricsMux(promReg *prometheus.Registry, monitor *health.Monitor) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		report := monitor.SystemReport()
		w.Header().Set("Content-Type", "application/json")
		if report.ActiveAlerts > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, `{"uptime_seconds":%d,"active_alerts":%d}`, int(report.Uptime.Seconds()), report.ActiveAlerts)
	})
	return mux
}
