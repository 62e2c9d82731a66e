// Command macro runs one acquisition and confirmation pass without the GUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/desktop"
	"github.com/ConserveLee/img-trace-macro/internal/engine"
	"github.com/ConserveLee/img-trace-macro/internal/engine/notify"
	"github.com/ConserveLee/img-trace-macro/internal/logger"
)

const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitError   = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML or TOML config file (default ./macro.yaml if present)")
	display := flag.Int("display", -1, "capture only this display (overrides capture.all_screens)")
	verbose := flag.Bool("verbose", false, "enable debug output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	if *display >= 0 {
		cfg.Capture.AllScreens = false
		cfg.Capture.Display = *display
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	console, err := logger.NewConsole(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	log := logger.NewAppLogger(nil, console)
	log.Debug("config loaded from %s", cfg.Source)

	host := desktop.NewHost(cfg, log)
	orch, err := engine.NewOrchestrator(cfg, host.Capabilities(log, notify.Log{Logger: log}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := orch.Run(ctx)
	switch {
	case report.Stopped():
		log.Info("Stopped by signal")
	case report.State == engine.StateFailed:
		stop()
		os.Exit(ExitFailed)
	}
	log.Info("acquired=%t confirmed=%t", report.AcquisitionSucceeded, report.ConfirmationSucceeded)
}
