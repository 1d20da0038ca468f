// Package main implements the entry point for the SharpFlow notifier, the
// real-time notification service that fans job updates out to each user's
// WebSocket connections and runs external agent calls under per-credential
// rate limits and retries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shajith240/SHARPFLOW-sub002/agent"
	"github.com/shajith240/SHARPFLOW-sub002/auth"
	"github.com/shajith240/SHARPFLOW-sub002/config"
	"github.com/shajith240/SHARPFLOW-sub002/health"
	"github.com/shajith240/SHARPFLOW-sub002/metric"
	"github.com/shajith240/SHARPFLOW-sub002/notify"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "sharpflow-notifier"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting sharpflow notifier",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsRegistry := metric.NewMetricsRegistry()

	verifier, err := auth.NewTokenVerifier([]byte(cfg.Auth.Secret))
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	tracker := agent.NewTracker(nil, logger)

	hub, err := notify.NewHub(notify.Options{
		Path:      cfg.Server.WSPath,
		Heartbeat: cfg.Hub.Heartbeat.Std(),
		Verifier:  verifier,
		Logger:    logger,
		Status:    tracker,
		Metrics:   metricsRegistry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}

	// The tracker pushes updates through the hub; wired after construction
	// because each needs the other.
	tracker.SetDispatcher(hub)

	if err := hub.Start(); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}
	defer func() { _ = hub.Stop(cliCfg.ShutdownTimeout) }()

	monitor := health.NewMonitor()
	monitor.UpdateHealthy("hub", "accepting connections")

	callers := newCallers(cfg, logger, metricsRegistry.Metrics)
	for name := range callers {
		monitor.UpdateHealthy(name, "quota headroom ok")
	}

	mux := http.NewServeMux()
	hub.RegisterHTTPHandlers(mux)
	mux.Handle("/metrics", metricsRegistry.Handler())
	mux.HandleFunc("/healthz", health.Handler(monitor, hub))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", server.Addr, "ws_path", cfg.Server.WSPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return watchQuotas(gctx, monitor, callers)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cliCfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// newCallers builds one rate-limited retrying caller per known agent
// credential scope from the configured defaults. Agents registered in this
// process run their upstream calls through these.
func newCallers(cfg *config.Config, logger *slog.Logger, metrics *metric.Metrics) map[string]*agent.Caller {
	opts := agent.CallerOptions{
		RateLimit: cfg.RateLimit.ToLimiter(),
		Retry:     cfg.Retry.ToExecutor(),
		Logger:    logger,
		Metrics:   metrics,
	}

	callers := make(map[string]*agent.Caller)
	for _, scope := range []string{
		agent.AgentLeadDiscovery,
		agent.AgentProfileResearch,
		agent.AgentEmailMonitor,
	} {
		callers[scope] = agent.NewCaller(scope, opts)
	}
	return callers
}

// watchQuotas reports each credential scope's admission headroom into the
// health monitor: a scope with any window at 90% or more is degraded.
func watchQuotas(ctx context.Context, monitor *health.Monitor, callers map[string]*agent.Caller) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, c := range callers {
				degraded := false
				for _, w := range c.Limiter().Usage() {
					if w.Max > 0 && w.Used*10 >= w.Max*9 {
						degraded = true
						break
					}
				}
				if degraded {
					monitor.UpdateDegraded(name, "credential quota nearly exhausted")
				} else {
					monitor.UpdateHealthy(name, "quota headroom ok")
				}
			}
		}
	}
}

func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()

	var cfg *config.Config
	var err error
	if cliCfg.ConfigPath != "" {
		cfg, err = loader.LoadFile(cliCfg.ConfigPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, err
	}

	// CLI flags beat both file and environment.
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	return cfg, nil
}
