// Command damagecast resolves simulation attacks and narrates them to the
// observers who saw them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/frontierstation/damagecast/internal/cache"
	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/damage"
	"github.com/frontierstation/damagecast/internal/dispatcher"
	"github.com/frontierstation/damagecast/internal/identity"
	"github.com/frontierstation/damagecast/internal/influx"
	"github.com/frontierstation/damagecast/internal/logging"
	"github.com/frontierstation/damagecast/internal/monitor"
	"github.com/frontierstation/damagecast/internal/narration"
	"github.com/frontierstation/damagecast/internal/notify"
	intOtel "github.com/frontierstation/damagecast/internal/otel"
	"github.com/frontierstation/damagecast/internal/parser"
	"github.com/frontierstation/damagecast/internal/perception"
	"github.com/frontierstation/damagecast/internal/queue"
	"github.com/frontierstation/damagecast/internal/round"
	"github.com/frontierstation/damagecast/internal/storage"
	"github.com/frontierstation/damagecast/internal/transport/websocket"
	"github.com/frontierstation/damagecast/internal/worker"
	"github.com/frontierstation/damagecast/pkg/streaming"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const name = "damagecast"

// shutdownTimeout bounds draining buffered commands on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	configDir := pflag.String("config", ".", "directory containing "+config.FileName)
	pflag.String("log-level", "", "override logLevel from the config file")
	pflag.Parse()

	if err := run(*configDir, pflag.CommandLine); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func run(configDir string, flags *pflag.FlagSet) error {
	sessionStart := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	configErr := config.Load(configDir)
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		_ = viper.BindPFlag("logLevel", f)
	}
	if configErr != nil {
		logger.Warn("Failed to load config, using defaults!", "error", configErr)
	}
	level := config.GetString("logLevel")

	logFile, err := openLogFile(config.GetString("logsDir"), sessionStart)
	if err != nil {
		return err
	}
	defer logFile.Close()

	otelProvider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), Version, logFile))
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider = nil
	}

	rc := round.NewContext()
	slogManager.SetContextProvider(logging.RoundContext(rc))
	if otelProvider != nil && otelProvider.Enabled() {
		slogManager.Setup(logFile, level, otelProvider.LoggerProvider())
	} else {
		slogManager.Setup(logFile, level, nil)
	}
	logger = slogManager.Logger()
	intOtel.RouteErrors(logger)
	logger.Info("Starting", "version", Version, "build", BuildDate, "log", logFile.Name())

	// storage
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, logger, logging.NewZerolog(logFile, level, "database"))
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	recorder := damage.MultiRecorder{backend}
	var metrics *influx.Manager
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(config.GetString("logsDir"), fmt.Sprintf("influx_backup_%s.lp.gz", sessionStart.Format("20060102_150405")))
		metrics = influx.NewManager(influxCfg, logging.NewZerolog(logFile, level, "influx"), backupPath)
		if err := metrics.Connect(ctx); err != nil {
			logger.Error("Failed to connect to InfluxDB", "error", err)
			metrics = nil
		} else {
			recorder = append(recorder, metrics)
		}
	}

	// perception and narration
	percCfg := config.GetPerceptionConfig()
	narrCfg := config.GetNarrationConfig()
	grid := perception.NewGrid(percCfg.GridWidth)
	world := perception.NewMap(grid)
	profiles := cache.NewProfileCache()
	sensers := cache.NewSenserCache()

	dir := identity.NewDirectory()
	outbox := queue.New[streaming.Outbound]()
	notifier, err := notify.New(dir, outbox)
	if err != nil {
		return err
	}

	resolver, err := damage.NewResolver(damage.Dependencies{
		Gate:      perception.NewGate(grid, percCfg.Workers),
		Composer:  narration.NewComposer(nil),
		Observers: sensers,
		Notifier:  notifier,
		Recorder:  recorder,
		Clock:     rc,
		Logger:    logger,
		Words: damage.Words{
			Offense:    narrCfg.OffenseWords,
			Trigger:    narrCfg.TriggerWords,
			Possessive: narrCfg.Possessive,
		},
	})
	if err != nil {
		return err
	}

	// commands
	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(logFile, level, "dispatcher")))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	deps := worker.Dependencies{
		Parser:        parser.NewParser(logger),
		Profiles:      profiles,
		Sensers:       sensers,
		Map:           world,
		Round:         rc,
		Resolver:      resolver,
		Narration:     narrCfg,
		Rounds:        backend,
		Logger:        logger,
		DefaultRadius: percCfg.DefaultRadius,
	}
	if metrics != nil {
		deps.Metrics = metrics
	}
	workers, err := worker.NewManager(deps)
	if err != nil {
		return err
	}
	workers.RegisterHandlers(d)
	registerLifecycleHandlers(d)
	logger.Info("Command handlers registered", "commands", d.Commands())

	server, err := websocket.NewServer(config.GetTransportConfig(), dir, outbox, logger)
	if err != nil {
		return err
	}

	monDeps := monitor.Dependencies{
		Round:      rc,
		Outbox:     outbox,
		Sessions:   dir,
		Transport:  server,
		Observers:  sensers,
		Storage:    backend,
		Bucket:     influx.BucketServerPerformance,
		Logger:     logger,
		StatusFile: filepath.Join(config.GetString("logsDir"), "status.json"),
		Interval:   config.GetDuration("monitor.interval"),
	}
	if metrics != nil {
		monDeps.Metrics = metrics
	}
	mon := monitor.NewService(monDeps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(gctx) })
	mon.Start(gctx)

	intakeDone := make(chan error, 1)
	go func() {
		intakeDone <- newIntake(d, os.Stdout, logger).Run(gctx, os.Stdin)
	}()

	select {
	case err := <-intakeDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Command intake failed", "error", err)
		} else {
			logger.Info("Command stream closed")
		}
	case <-gctx.Done():
		logger.Info("Shutting down")
	}
	stop()

	return shutdown(logger, d, mon, g, backend, metrics, otelProvider, slogManager)
}

func shutdown(
	logger *slog.Logger,
	d *dispatcher.Dispatcher,
	mon *monitor.Service,
	g *errgroup.Group,
	backend storage.Backend,
	metrics *influx.Manager,
	otelProvider *intOtel.Provider,
	slogManager *logging.SlogManager,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := d.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("dispatcher: %w", err))
	}
	mon.Stop()
	if err := g.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("websocket: %w", err))
	}
	if err := backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if metrics != nil {
		if err := metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("influx: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Shutdown finished with errors", "error", err)
	} else {
		logger.Info("Shutdown complete")
	}

	_ = slogManager.Flush(ctx)
	if otelProvider != nil {
		_ = otelProvider.Shutdown(ctx)
	}
	return err
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(context.Context, dispatcher.Event) (any, error) {
		return Version, nil
	})
}

func openLogFile(logsDir string, sessionStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, name, sessionStart)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}
