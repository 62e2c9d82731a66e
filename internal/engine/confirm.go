package engine

import (
	"context"
	"fmt"
	"time"
)

// ConfirmationStep checks once for the secondary template after a successful
// acquisition and clicks it when present. A miss is a normal negative result.
type ConfirmationStep struct {
	Template    string
	SettleDelay time.Duration
	AllScreens  bool

	caps Capabilities
}

// NewConfirmationStep creates a step that looks for template once after settle.
func NewConfirmationStep(template string, settle time.Duration, allScreens bool, caps Capabilities) *ConfirmationStep {
	return &ConfirmationStep{
		Template:    template,
		SettleDelay: settle,
		AllScreens:  allScreens,
		caps:        caps.withDefaults(),
	}
}

// Run waits for the follow-up screen to load, then performs exactly one lookup.
func (s *ConfirmationStep) Run(ctx context.Context) (bool, error) {
	_ = s.caps.Clock.Sleep(context.WithoutCancel(ctx), s.SettleDelay)

	frame, err := s.caps.Sampler.Capture(s.AllScreens)
	if err != nil {
		return false, fmt.Errorf("capturing screen for confirmation: %w", err)
	}

	at, ok, err := s.caps.Matcher.Locate(frame, s.Template)
	if err != nil {
		return false, fmt.Errorf("locating %s: %w", s.Template, err)
	}
	if !ok {
		s.caps.Log.Info("Confirmation image not found")
		return false, nil
	}

	if err := s.caps.Input.Click(at); err != nil {
		return false, fmt.Errorf("clicking confirmation at %v: %w", at, err)
	}
	s.caps.Log.Info("Confirmation image found at (%d, %d)", at.X, at.Y)
	return true, nil
}
