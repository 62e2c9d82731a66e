package main

import (
	"log/slog"
	"os"

	"github.com/ConserveLee/img-trace-macro/app/macro"
	"github.com/ConserveLee/img-trace-macro/app/tools"
	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/logger"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
)

func main() {
	cfg, err := config.Load(os.Getenv("MACRO_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	console, err := logger.NewConsole(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		slog.Error("failed to initialise logger", "err", err)
		os.Exit(1)
	}
	console.Info("config loaded", "source", cfg.Source)

	myApp := app.New()
	myWindow := myApp.NewWindow("Image Trace Macro")
	myWindow.Resize(fyne.NewSize(500, 600))

	tabs := container.NewAppTabs(
		container.NewTabItem("Target Macro", macro.NewMacroPanel(myWindow, cfg, console)),
		container.NewTabItem("Tools", tools.NewToolsPanel(myWindow, cfg)),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	myWindow.SetContent(tabs)
	myWindow.ShowAndRun()
}
