package macro

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kbinani/screenshot"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"

	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/desktop"
	"github.com/ConserveLee/img-trace-macro/internal/engine"
	"github.com/ConserveLee/img-trace-macro/internal/engine/notify"
	"github.com/ConserveLee/img-trace-macro/internal/logger"
)

// NewMacroPanel creates the UI panel that runs the target macro
func NewMacroPanel(win fyne.Window, cfg config.Config, console *slog.Logger) fyne.CanvasObject {
	// --- Data Binding ---
	logData := binding.NewStringList()
	statusData := binding.NewString()
	statusData.Set("Status: Ready")

	appLogger := logger.NewAppLogger(logData, console)
	host := desktop.NewHost(cfg, appLogger)
	notifier := notify.Multi{notify.Log{Logger: appLogger}, notify.Dialog{Window: win}}

	// Each run gets a fresh orchestrator so toggles made while idle take effect.
	runCfg := cfg
	bot := engine.NewBot(engine.RunnerFunc(func(ctx context.Context) engine.OutcomeReport {
		orch, err := engine.NewOrchestrator(runCfg, host.Capabilities(appLogger, notifier))
		if err != nil {
			appLogger.Error("Startup Error: %v", err)
			return engine.OutcomeReport{State: engine.StateFailed, Err: err}
		}
		orch.OnTransition = func(from, to engine.State) {
			appLogger.Debug("state %s -> %s", from, to)
		}
		return orch.Run(ctx)
	}))

	// --- UI Components ---

	// 1. Screen Selector
	numDisplays := screenshot.NumActiveDisplays()
	var displayOptions []string
	for i := 0; i < numDisplays; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displayOptions = append(displayOptions, fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}

	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err != nil {
			id = 0
		}
		host.Searcher.SetDisplayID(id)
		runCfg.Capture.Display = id
		appLogger.Info("Switched to Display %d", id)
	})
	if cfg.Capture.Display < len(displayOptions) {
		displaySelect.SetSelected(displayOptions[cfg.Capture.Display])
	}

	allScreens := widget.NewCheck("Search all screens", func(on bool) {
		runCfg.Capture.AllScreens = on
		if on {
			displaySelect.Disable()
		} else {
			displaySelect.Enable()
		}
	})
	allScreens.SetChecked(cfg.Capture.AllScreens)

	templatesLabel := widget.NewLabel(fmt.Sprintf("Target: %s\nConfirm: %s", cfg.Templates.Primary, cfg.Templates.Secondary))

	// 2. Status & Logs
	statusLabel := widget.NewLabelWithData(statusData)
	statusLabel.TextStyle = fyne.TextStyle{Bold: true}

	logList := widget.NewListWithData(
		logData,
		func() fyne.CanvasObject { return widget.NewLabel("Log entry template") },
		func(i binding.DataItem, o fyne.CanvasObject) { o.(*widget.Label).Bind(i.(binding.String)) },
	)

	// Auto-scroll
	logData.AddListener(binding.NewDataListener(func() {
		list, _ := logData.Get()
		if len(list) > 0 {
			logList.ScrollToBottom()
		}
	}))

	// 3. Buttons
	startBtn := widget.NewButton("Start", nil)
	stopBtn := widget.NewButton("Stop", nil)
	stopBtn.Disable()

	setIdle := func() {
		stopBtn.Disable()
		startBtn.Enable()
		allScreens.Enable()
		if !runCfg.Capture.AllScreens {
			displaySelect.Enable()
		}
	}

	bot.StatusFunc = func(msg string) { statusData.Set(msg) }
	bot.FinishFunc = func(report engine.OutcomeReport) {
		fyne.Do(setIdle)
	}

	startBtn.OnTapped = func() {
		startBtn.Disable()
		stopBtn.Enable()
		displaySelect.Disable()
		allScreens.Disable()
		bot.Start()
	}

	stopBtn.OnTapped = func() {
		stopBtn.Disable()
		appLogger.Info("Stopping after the current poll...")
		// Stop blocks until the run reaches a sleep boundary.
		go bot.Stop()
	}

	// --- Layout ---
	controls := container.NewVBox(
		widget.NewLabel("Target macro:"),
		templatesLabel,
		container.NewHBox(widget.NewLabel("Screen:"), displaySelect),
		allScreens,
		statusLabel,
		container.NewHBox(startBtn, stopBtn),
		widget.NewSeparator(),
		widget.NewLabel("Log:"),
	)

	return container.NewBorder(controls, nil, nil, nil, logList)
}
