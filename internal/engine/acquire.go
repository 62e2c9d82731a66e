package engine

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

// AcquisitionPolicy holds the tunables of the primary-target poll loop.
type AcquisitionPolicy struct {
	Template        string
	MinDelay        time.Duration // inclusive
	MaxDelay        time.Duration // exclusive
	SettleDelay     time.Duration
	FailureBudget   int
	SeparatorEvery  int
	MemoryThreshold uint64 // bytes; strictly greater triggers a reclaim hint
	ConfirmKey      string
	AllScreens      bool
	PID             int // 0 means the current process
}

// LoopState is the run-scoped state of one acquisition.
type LoopState struct {
	Delay               time.Duration // drawn once per run
	Iterations          int
	ConsecutiveFailures int
	SinceSeparator      int
	TargetAcquired      bool
}

// AcquisitionLoop polls the screen for the primary template until it is found or
// the capture failure budget runs out.
type AcquisitionLoop struct {
	policy AcquisitionPolicy
	caps   Capabilities
	rng    *rand.Rand
	state  LoopState
}

// NewAcquisitionLoop creates a loop. rng supplies the per-run delay draw.
func NewAcquisitionLoop(policy AcquisitionPolicy, caps Capabilities, rng *rand.Rand) *AcquisitionLoop {
	if policy.PID == 0 {
		policy.PID = os.Getpid()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &AcquisitionLoop{
		policy: policy,
		caps:   caps.withDefaults(),
		rng:    rng,
	}
}

// State returns a snapshot of the loop state.
func (l *AcquisitionLoop) State() LoopState {
	return l.state
}

// Run polls until the target is clicked and confirmed with a key press
// (acquired=true), or returns an error. Cancellation is only observed at the
// inter-poll sleep; an in-flight sample or click sequence always completes.
func (l *AcquisitionLoop) Run(ctx context.Context) (bool, error) {
	l.state = LoopState{Delay: l.drawDelay()}
	log := l.caps.Log
	log.Debug("acquisition started: template=%s delay=%s budget=%d", l.policy.Template, l.state.Delay, l.policy.FailureBudget)

	for {
		l.state.Iterations++

		res, err := l.sample()
		if err != nil {
			return false, err
		}

		switch res.Kind {
		case SampleFailed:
			l.state.ConsecutiveFailures++
			if l.state.ConsecutiveFailures >= l.policy.FailureBudget {
				return false, fmt.Errorf("%w after %d attempts: %w", ErrSampleBudgetExhausted, l.state.ConsecutiveFailures, res.Err)
			}
			log.Error("%v: Count %d", res.Err, l.state.ConsecutiveFailures)

		case SampleFound:
			l.state.ConsecutiveFailures = 0
			if err := l.actOnTarget(ctx, res.Point); err != nil {
				return false, err
			}
			return true, nil

		case SampleNotFound:
			l.state.ConsecutiveFailures = 0
			l.checkMemory()
			l.state.SinceSeparator++
			if l.state.SinceSeparator >= l.policy.SeparatorEvery {
				l.state.SinceSeparator = 0
				log.Info("%s(%d)", strings.Repeat("-", 28), int64(l.state.Delay/time.Second))
			}
		}

		if err := l.caps.Clock.Sleep(ctx, l.state.Delay); err != nil {
			return false, err
		}
	}
}

// drawDelay picks the inter-poll delay in whole seconds, uniformly from
// [MinDelay, MaxDelay).
func (l *AcquisitionLoop) drawDelay() time.Duration {
	steps := int64((l.policy.MaxDelay - l.policy.MinDelay) / time.Second)
	if steps <= 0 {
		return l.policy.MinDelay
	}
	return l.policy.MinDelay + time.Duration(l.rng.Int64N(steps))*time.Second
}

// sample performs one capture and primary-template lookup.
func (l *AcquisitionLoop) sample() (SampleResult, error) {
	frame, err := l.caps.Sampler.Capture(l.policy.AllScreens)
	if err != nil {
		if IsCaptureUnavailable(err) {
			return sampleFailed(err), nil
		}
		return SampleResult{}, fmt.Errorf("capturing screen: %w", err)
	}

	at, ok, err := l.caps.Matcher.Locate(frame, l.policy.Template)
	if err != nil {
		return SampleResult{}, fmt.Errorf("locating %s: %w", l.policy.Template, err)
	}
	if !ok {
		return notFound(), nil
	}
	return found(at), nil
}

// actOnTarget clicks the target, waits for the confirm prompt, and accepts it.
func (l *AcquisitionLoop) actOnTarget(ctx context.Context, at image.Point) error {
	if err := l.caps.Input.Click(at); err != nil {
		return fmt.Errorf("clicking target at %v: %w", at, err)
	}
	l.state.TargetAcquired = true
	l.caps.Log.Info("Target acquired at (%d, %d)", at.X, at.Y)

	// The click sequence is not interruptible once started.
	_ = l.caps.Clock.Sleep(context.WithoutCancel(ctx), l.policy.SettleDelay)

	if err := l.caps.Input.KeyPress(l.policy.ConfirmKey); err != nil {
		return fmt.Errorf("pressing %q: %w", l.policy.ConfirmKey, err)
	}
	return nil
}

// checkMemory logs the resident size and issues a reclaim hint above the threshold.
func (l *AcquisitionLoop) checkMemory() {
	if l.caps.Memory == nil {
		l.caps.Log.Info("Waiting for target ...")
		return
	}
	rss, err := l.caps.Memory.ResidentBytes(l.policy.PID)
	if err != nil {
		l.caps.Log.Debug("reading resident memory: %v", err)
		l.caps.Log.Info("Waiting for target ...")
		return
	}
	if rss > l.policy.MemoryThreshold {
		l.caps.Reclaimer.Reclaim()
	}
	l.caps.Log.Info("Waiting for target ... Current memory: %5.0f MB", float64(rss)/(1<<20))
}
