// Package notify delivers terminal outcomes to the user.
package notify

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/ConserveLee/img-trace-macro/internal/engine"
)

// Log writes notifications to a logger. It is the headless notifier.
type Log struct {
	Logger engine.Logger
}

func (n Log) Info(title, message string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("[%s] %s", title, strings.ReplaceAll(message, "\n", " "))
}

// Dialog shows notifications as an information dialog on a fyne window.
type Dialog struct {
	Window fyne.Window
}

func (n Dialog) Info(title, message string) {
	if n.Window == nil {
		return
	}
	// Runs on the UI goroutine; Info is called from the pipeline goroutine.
	fyne.Do(func() {
		dialog.ShowInformation(title, message, n.Window)
	})
}

// Multi fans a notification out to every notifier in order.
type Multi []engine.Notifier

func (m Multi) Info(title, message string) {
	for _, n := range m {
		if n != nil {
			n.Info(title, message)
		}
	}
}
