// Package desktop binds the engine capabilities to the local machine.
package desktop

import (
	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/engine"
	"github.com/ConserveLee/img-trace-macro/internal/engine/input"
	"github.com/ConserveLee/img-trace-macro/internal/engine/memory"
	"github.com/ConserveLee/img-trace-macro/internal/engine/screen"
)

// Host holds the real bindings. Searcher is exposed so callers can change the
// capture display between runs.
type Host struct {
	Searcher *screen.Searcher
	Robot    *input.Robot
}

// NewHost creates bindings configured from cfg. Debug output goes to log.
func NewHost(cfg config.Config, log engine.Logger) *Host {
	searcher := screen.NewSearcher(screen.OptionsFromConfig(cfg))
	searcher.SetDebugFunc(log.Debug)
	return &Host{
		Searcher: searcher,
		Robot:    input.NewRobot(log.Debug),
	}
}

// Capabilities assembles the engine capability set around notifier.
func (h *Host) Capabilities(log engine.Logger, notifier engine.Notifier) engine.Capabilities {
	return engine.Capabilities{
		Sampler:   h.Searcher,
		Matcher:   h.Searcher,
		Input:     h.Robot,
		Memory:    memory.Monitor{},
		Reclaimer: memory.Reclaimer{},
		Notifier:  notifier,
		Clock:     engine.RealClock{},
		Log:       log,
	}
}
