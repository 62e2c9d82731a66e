package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ConserveLee/img-trace-macro/internal/config"
)

// State is the phase of one pipeline run.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateConfirming
	StateFailed // terminal
	StateDone   // terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquiring:
		return "Acquiring"
	case StateConfirming:
		return "Confirming"
	case StateFailed:
		return "Failed"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateDone
}

// Notification texts.
const (
	SuccessTitle   = "Process Complete"
	SuccessMessage = "Target check has completed."
	ErrorTitle     = "Exception handling"
)

// OutcomeReport is the final value of one run.
type OutcomeReport struct {
	AcquisitionSucceeded  bool
	ConfirmationSucceeded bool
	State                 State
	Err                   error // cause of Failed, or the context error of a stopped run
}

// Stopped reports whether the run ended because its context was cancelled.
func (r OutcomeReport) Stopped() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}

// Orchestrator sequences acquisition and confirmation and routes the terminal
// outcome to the Notifier.
type Orchestrator struct {
	cfg  config.Config
	caps Capabilities
	rng  *rand.Rand

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to State)

	mu    sync.Mutex
	state State
}

// NewOrchestrator validates cfg and binds it to the host capabilities.
func NewOrchestrator(cfg config.Config, caps Capabilities) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if caps.Sampler == nil || caps.Matcher == nil || caps.Input == nil {
		return nil, errors.New("sampler, matcher and input capabilities are required")
	}

	seed1, seed2 := cfg.Polling.Seed, cfg.Polling.Seed
	if seed1 == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}
	return &Orchestrator{
		cfg:  cfg,
		caps: caps.withDefaults(),
		rng:  rand.New(rand.NewPCG(seed1, seed2)),
	}, nil
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(next State) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	hook := o.OnTransition
	o.mu.Unlock()

	if hook != nil && prev != next {
		hook(prev, next)
	}
}

// Run executes the pipeline once. It never retries; call Run again to start over.
func (o *Orchestrator) Run(ctx context.Context) OutcomeReport {
	o.setState(StateIdle)
	var report OutcomeReport

	err := guard(func() error { return o.pipeline(ctx, &report) })
	switch {
	case err == nil:
		o.setState(StateDone)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		report.Err = err
		o.caps.Log.Info("Stopped before the target was acquired")
		o.setState(StateDone)
	default:
		report.Err = err
		o.caps.Log.Error("Run failed: %v", err)
		o.setState(StateFailed)
		o.caps.Notifier.Info(ErrorTitle, fmt.Sprintf("An error occurred.\n(%v)", err))
	}

	report.State = o.State()
	return report
}

func (o *Orchestrator) pipeline(ctx context.Context, report *OutcomeReport) error {
	o.setState(StateAcquiring)
	loop := NewAcquisitionLoop(AcquisitionPolicy{
		Template:        o.cfg.Templates.Primary,
		MinDelay:        o.cfg.Polling.MinDelay,
		MaxDelay:        o.cfg.Polling.MaxDelay,
		SettleDelay:     o.cfg.Polling.SettleDelay,
		FailureBudget:   o.cfg.Retry.SampleFailureBudget,
		SeparatorEvery:  o.cfg.Retry.SeparatorEvery,
		MemoryThreshold: o.cfg.MemoryThresholdBytes(),
		ConfirmKey:      o.cfg.Input.ConfirmKey,
		AllScreens:      o.cfg.Capture.AllScreens,
	}, o.caps, o.rng)

	acquired, err := loop.Run(ctx)
	o.caps.Log.Info("-------------------------")
	if err != nil {
		return err
	}
	report.AcquisitionSucceeded = acquired

	o.setState(StateConfirming)
	step := NewConfirmationStep(o.cfg.Templates.Secondary, o.cfg.Polling.SettleDelay, o.cfg.Capture.AllScreens, o.caps)
	confirmed, err := step.Run(ctx)
	if err != nil {
		return err
	}
	report.ConfirmationSucceeded = confirmed

	// A missing confirmation image ends the run silently.
	if confirmed {
		o.caps.Notifier.Info(SuccessTitle, SuccessMessage)
	}
	return nil
}

// guard converts a panic raised by a capability into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unhandled runtime error: %v", r)
		}
	}()
	return fn()
}
