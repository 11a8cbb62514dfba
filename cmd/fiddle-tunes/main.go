// Package main implements the fiddle-tunes command line: a driver that runs
// the standard interval experiments over JSON score files and writes CSV, or
// a distributed worker serving analysis jobs over NATS.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ELVIS-Project/fiddle-tunes/analyzers/experimenters"
	"github.com/ELVIS-Project/fiddle-tunes/analyzers/indexers"
	"github.com/ELVIS-Project/fiddle-tunes/config"
	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/metric"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
	"github.com/ELVIS-Project/fiddle-tunes/workflow"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "fiddle-tunes"
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
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	registry := stage.NewRegistry()
	if err := indexers.Register(registry); err != nil {
		return fmt.Errorf("register indexers: %w", err)
	}
	if err := experimenters.Register(registry); err != nil {
		return fmt.Errorf("register experimenters: %w", err)
	}
	slog.Info("analysis stages registered", "count", len(registry.Names()), "stages", registry.Names())

	runner := dispatch.NewRunner(registry, logger)

	ctx := context.Background()
	if cliCfg.WorkerMode {
		return runWorker(ctx, cfg, runner, logger)
	}
	return runDriver(ctx, cfg, cliCfg, runner, logger)
}

// loadConfig loads the YAML file when given one, defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runWorker serves analysis jobs over NATS until a shutdown signal.
func runWorker(ctx context.Context, cfg *config.Config, runner *dispatch.Runner, logger *slog.Logger) error {
	if !cfg.NATS.Enabled {
		return fmt.Errorf("worker mode requires nats.enabled in the configuration")
	}

	conn, err := nats.Connect(cfg.NATS.URL, nats.Name(appName+"-worker"))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer conn.Close()

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	worker := dispatch.NewNATSWorker(conn, cfg.NATS.Subject, runner, logger)
	if err := worker.Start(signalCtx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	slog.Info("analysis worker started", "subject", cfg.NATS.Subject, "url", cfg.NATS.URL)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")
	return worker.Stop()
}

// runDriver runs one experiment over the score files on the command line.
func runDriver(ctx context.Context, cfg *config.Config, cliCfg *CLIConfig, runner *dispatch.Runner, logger *slog.Logger) error {
	paths := flagArgs()
	if len(paths) == 0 {
		return fmt.Errorf("no score files given; see --help")
	}

	metricsRegistry := metric.NewMetricsRegistry()
	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = server.Stop() }()
		slog.Info("metrics server started", "address", server.Address())
	}

	transport, err := buildTransport(cfg, runner, logger)
	if err != nil {
		return err
	}

	controller := dispatch.NewController(cfg.Controller.Workers, transport,
		dispatch.WithQueueSize(cfg.Controller.QueueSize),
		dispatch.WithMetricsRegistry(metricsRegistry))
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}
	defer func() { _ = controller.Stop(30 * time.Second) }()
	slog.Info("controller started", "workers", controller.Workers())

	pieces := make([]score.Piece, 0, len(paths))
	for _, path := range paths {
		piece, err := score.LoadJSON(path)
		if err != nil {
			slog.Warn("skipping unreadable score", "path", path, "error", err)
			continue
		}
		pieces = append(pieces, piece)
	}
	if len(pieces) == 0 {
		return fmt.Errorf("none of the %d score files could be loaded", len(paths))
	}
	slog.Info("scores loaded", "count", len(pieces))

	manager := workflow.NewManager(controller, logger, pieces...)
	manager.SetShared(workflow.SettingQuality, cliCfg.Quality)
	manager.SetShared(workflow.SettingSimple, cliCfg.Simple)
	manager.SetShared(workflow.SettingN, cliCfg.N)

	result, err := manager.Run(ctx, cliCfg.Experiment)
	if err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}
	for _, excl := range result.Excluded {
		slog.Warn("piece excluded", "piece", excl.PieceID, "reason", excl.Reason)
	}

	out, closer, err := openOutput(cliCfg.Output)
	if err != nil {
		return err
	}
	defer closer()

	if err := workflow.ExportCSV(out, result.Table, cliCfg.Experiment); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	slog.Info("experiment complete",
		"experiment", cliCfg.Experiment,
		"pieces", len(pieces),
		"excluded", len(result.Excluded))
	return controller.Drain(ctx)
}

// buildTransport selects in-process or NATS execution from the config.
func buildTransport(cfg *config.Config, runner *dispatch.Runner, logger *slog.Logger) (dispatch.Transport, error) {
	if !cfg.NATS.Enabled {
		return dispatch.NewLocalTransport(runner), nil
	}
	conn, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("using NATS job transport", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	return dispatch.NewNATSTransport(conn, cfg.NATS.Subject, logger), nil
}

// openOutput opens the CSV destination: stdout for "-".
func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
