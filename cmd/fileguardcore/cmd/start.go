package cmd

import (
	"context"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fxtack/fileguardcore/internal/adapter/inbound/control"
	"github.com/fxtack/fileguardcore/internal/adapter/inbound/monitorstream"
	"github.com/fxtack/fileguardcore/internal/adapter/outbound/hostapi/posixfs"
	"github.com/fxtack/fileguardcore/internal/adapter/outbound/memory"
	"github.com/fxtack/fileguardcore/internal/adapter/outbound/sqlite"
	"github.com/fxtack/fileguardcore/internal/config"
	"github.com/fxtack/fileguardcore/internal/domain/lifecycle"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/service"
)

var devMode bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fileguardcore engine",
	Long: `Start the fileguardcore engine: initialize the rule store and monitor
queue, register the interception pipeline, open the control and monitor
listeners, and begin filtering.

Startup order follows the boot sequence: read config; initialize rule
store, monitor queue, and records counter; register operation callbacks;
create control and monitor ports; spawn the monitor worker; start
filtering. Any failure during startup tears down what already started.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, disables admin auth if no secret is configured)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("fileguardcore stopped")
	return nil
}

// run implements the §4.F boot sequence: read config (done by the
// caller); initialize rule store, monitor queue, and records counter;
// register operation callbacks; create control and monitor ports;
// spawn monitor worker; start filtering.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)

	if cfg.Tracing.Enabled {
		tp, err := service.NewTracerProvider()
		if err != nil {
			return fmt.Errorf("start tracer provider: %w", err)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// ===== rule store, monitor queue, records counter =====
	ruleStore := memory.NewRuleStore()
	flags := &lifecycle.Flags{}
	state := lifecycle.NewState()

	worker := newDeferredWorker()
	queue := memory.NewMonitorQueue(cfg.MaxRecords, worker.Wake)

	// ===== register operation callbacks (pipeline) =====
	pipeline := service.NewPipelineService(ruleStore, queue, worker, metrics, logger)

	monitorSink := monitorstream.NewServer(logger, worker.SetConsumerAttached)
	realWorker := service.NewMonitorWorker(queue, monitorSink, logger)
	worker.bind(realWorker)

	var historyStore *sqlite.HistoryStore
	if cfg.History.Enabled {
		hs, err := sqlite.Open(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		historyStore = hs
		defer func() { _ = historyStore.Close() }()

		realWorker.SetOnDelivered(func(recs []monitor.Record) {
			for _, rec := range recs {
				if err := historyStore.Append(ctx, rec); err != nil {
					logger.Warn("history store append failed", "error", err)
				}
			}
		})
	}

	// ===== control and monitor ports =====
	dispatcher := service.NewControlDispatcher(ruleStore, flags, queue)
	controlServer := control.NewServer(dispatcher, logger, cfg.AdminAuth.Enabled, cfg.AdminAuth.SecretHash, cfg.AdminAuth.HandshakeTimeout)
	if err := controlServer.Listen(cfg.ControlSocket); err != nil {
		return fmt.Errorf("listen control socket: %w", err)
	}
	if err := monitorSink.Listen(cfg.MonitorSocket); err != nil {
		return fmt.Errorf("listen monitor socket: %w", err)
	}

	if cfg.MetricsAddr != "" {
		mux := stdhttp.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer := &stdhttp.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = metricsServer.Close()
		}()
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
	}

	// ===== spawn monitor worker =====
	workerDone := make(chan error, 1)
	go func() { workerDone <- realWorker.Run(ctx) }()

	controlDone := make(chan error, 1)
	go func() { controlDone <- controlServer.Serve(ctx) }()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- monitorSink.Serve(ctx) }()

	go reportRulesTotal(ctx, ruleStore, metrics)

	// ===== start filtering =====
	state.Set(lifecycle.PhaseRunning)
	logger.Info("fileguardcore running",
		"version", Version,
		"control_socket", cfg.ControlSocket,
		"monitor_socket", cfg.MonitorSocket,
		"host_adapter", cfg.HostAdapter.Kind,
	)

	var hostAdapterDone chan error
	if cfg.HostAdapter.Kind == "posixfs" && len(cfg.HostAdapter.WatchRoots) > 0 {
		adapter := posixfs.New(pipeline, logger, cfg.HostAdapter.WatchRoots)
		hostAdapterDone = make(chan error, 1)
		go func() { hostAdapterDone <- adapter.Run(ctx) }()
	}

	<-ctx.Done()
	state.Set(lifecycle.PhaseStopping)

	realWorker.Stop()
	<-workerDone
	<-controlDone
	<-monitorDone
	if hostAdapterDone != nil {
		<-hostAdapterDone
	}

	state.Set(lifecycle.PhaseStopped)
	return nil
}

// reportRulesTotal periodically samples the rule store's size into
// the rules_total gauge, since rule churn happens only via admin
// requests and is otherwise invisible to Prometheus.
func reportRulesTotal(ctx context.Context, store *memory.RuleStore, metrics *service.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rules, err := store.Query(ctx)
			if err != nil {
				continue
			}
			metrics.RulesTotal.Set(float64(len(rules)))
		}
	}
}

// deferredWorker lets the monitor queue's onWake callback (set at
// construction, before the MonitorWorker that owns it exists) and the
// PipelineService's Worker dependency both target a worker that is
// bound moments later in the boot sequence.
type deferredWorker struct {
	inner *service.MonitorWorker
}

func newDeferredWorker() *deferredWorker { return &deferredWorker{} }

func (d *deferredWorker) bind(w *service.MonitorWorker) { d.inner = w }

func (d *deferredWorker) Wake() {
	if d.inner != nil {
		d.inner.Wake()
	}
}

func (d *deferredWorker) SetConsumerAttached(attached bool) {
	if d.inner != nil {
		d.inner.SetConsumerAttached(attached)
	}
}

func (d *deferredWorker) Stop() {
	if d.inner != nil {
		d.inner.Stop()
	}
}

func (d *deferredWorker) Run(ctx context.Context) error {
	if d.inner != nil {
		return d.inner.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".fileguardcore", "core.pid")
	}
	return filepath.Join(os.TempDir(), "fileguardcore.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}
