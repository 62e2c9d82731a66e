package engine

import (
	"context"
	"sync"
)

// BotStatus represents the current state of the bot
type BotStatus int

const (
	StatusStopped BotStatus = iota
	StatusRunning
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) OutcomeReport
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) OutcomeReport

func (f RunnerFunc) Run(ctx context.Context) OutcomeReport { return f(ctx) }

// Bot runs the pipeline in the background so a UI can start and stop it.
type Bot struct {
	runner Runner

	// Callbacks for UI updates
	StatusFunc func(string)        // For transient status (Label)
	FinishFunc func(OutcomeReport) // Called once per run after it ends

	status BotStatus
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBot creates a new instance of the bot
func NewBot(runner Runner) *Bot {
	return &Bot{
		runner:     runner,
		StatusFunc: func(string) {},
		FinishFunc: func(OutcomeReport) {},
	}
}

// Status returns whether a run is in progress.
func (b *Bot) Status() BotStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start begins one pipeline run. It is a no-op while a run is in progress.
func (b *Bot) Start() {
	b.mu.Lock()
	if b.status == StatusRunning {
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.status = StatusRunning
	b.cancel = cancel
	b.wg.Add(1)
	b.mu.Unlock()

	b.StatusFunc("Status: Running")
	go b.run(ctx)
}

// Stop cancels the current run and waits for it to reach a sleep boundary.
func (b *Bot) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// Wait blocks until the current run ends.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) run(ctx context.Context) {
	defer b.wg.Done()
	report := b.runner.Run(ctx)

	b.mu.Lock()
	b.cancel()
	b.cancel = nil
	b.status = StatusStopped
	b.mu.Unlock()

	b.StatusFunc("Status: " + report.State.String())
	b.FinishFunc(report)
}
