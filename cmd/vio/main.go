package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
	"github.com/dj-oyu/vio/internal/metrics"
	"github.com/dj-oyu/vio/internal/monitor"
	"github.com/dj-oyu/vio/internal/playback"
	"github.com/dj-oyu/vio/internal/workfile"
)

// App wires provisioning, playback and the optional HTTP servers
type App struct {
	cfg        config.Config
	runID      string
	metrics    *metrics.Metrics
	runner     *playback.Runner
	httpServer *http.Server
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.FromArgs("vio", args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "vio: %v\n", err)
		return 2
	}

	// Initialize logger
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "vio: %v\n", err)
		return 2
	}
	logger.Init(level, stderr, cfg.LogColor)
	logger.Info("Main", "Log level: %s", level)

	// A fresh work file is still hot in the page cache, so never measure it
	created, err := workfile.NewProvisioner().EnsureAll(cfg)
	if err != nil {
		logger.Error("Main", "Work file provisioning failed: %v", err)
		return 1
	}
	if created {
		fmt.Fprintln(stdout, "Created work files. quitting.")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, stdout)
	app.Start()

	runErr := app.Run(ctx)

	if err := app.Shutdown(); err != nil {
		logger.Warn("Main", "Error during shutdown: %v", err)
	}
	if runErr != nil {
		return 1
	}
	return 0
}

// NewApp creates the runner and its collaborators
func NewApp(cfg config.Config, out io.Writer) *App {
	runID := uuid.NewString()
	m := metrics.New(runID)

	runner := playback.NewRunner(cfg,
		playback.WithRunID(runID),
		playback.WithMetrics(m),
		playback.WithOutput(out),
	)

	app := &App{
		cfg:     cfg,
		runID:   runID,
		metrics: m,
		runner:  runner,
	}

	if cfg.MonitorAddr != "" {
		app.httpServer = &http.Server{
			Addr:    cfg.MonitorAddr,
			Handler: monitor.NewServer(cfg, runner, m.Handler()).Handler(),
		}
	}
	return app
}

// Start launches the optional pprof and monitor servers
func (a *App) Start() {
	logger.Info("Main", "Run %s", a.runID)
	logger.Info("Main", "  Threads: %d", a.cfg.Threads)
	logger.Info("Main", "  Frame rate: %v fps, frame size: %d bytes", a.cfg.FrameRate, a.cfg.FrameSize)
	logger.Info("Main", "  Time limit: %s", a.cfg.TimeLimit)
	if a.cfg.Prefetch() {
		logger.Info("Main", "  Prefetch: %d bytes x %d", a.cfg.PrefetchSize, a.cfg.PrefetchDepth)
	} else {
		logger.Info("Main", "  Prefetch: disabled, %d byte chunks", a.cfg.ChunkSize)
	}

	if a.cfg.PprofAddr != "" {
		go func() {
			logger.Info("Main", "Starting pprof server on %s", a.cfg.PprofAddr)
			if err := http.ListenAndServe(a.cfg.PprofAddr, nil); err != nil {
				logger.Warn("Main", "pprof server error: %v", err)
			}
		}()
	}

	if a.httpServer != nil {
		go func() {
			logger.Info("Main", "Starting monitor server on %s", a.httpServer.Addr)
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("Main", "Monitor server error: %v", err)
			}
		}()
	}
}

// Run plays every session and blocks until all of them have stopped
func (a *App) Run(ctx context.Context) error {
	_, err := a.runner.Run(ctx)
	return err
}

// Shutdown stops the monitor server
func (a *App) Shutdown() error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.httpServer.Shutdown(ctx)
}
