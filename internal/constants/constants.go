package constants

import "time"

// Target Macro Configuration
const (
	// Template References
	PrimaryTemplate   = "target_img/calc.png"   // Main actionable button
	SecondaryTemplate = "target_img/calc_5.png" // Screen shown after the button is accepted

	// Poll Intervals
	MinPollDelay = 1 * time.Second // Lower bound (inclusive) of the per-run random delay
	MaxPollDelay = 7 * time.Second // Upper bound (exclusive) of the per-run random delay

	// Interaction Delays
	SettleDelay = 1 * time.Second // Wait after a click for the next screen to render

	// Retry Limits
	SampleFailureBudget = 3  // Consecutive capture failures before giving up
	SeparatorEvery      = 10 // Not-found polls between separator log lines

	// Memory
	MemoryThresholdMB = 300 // Resident size above which a reclaim hint is issued

	// Input
	ConfirmKey = "enter"

	// Image Matching
	DefaultTolerance = 60   // Color tolerance for pixel comparison
	MaxFailRate      = 0.03 // Allow up to 3% of pixels to fail matching
	DefaultScale     = 1.0  // Template scale factor (2.0 for HiDPI captures)

	// Logging
	LogHistoryLimit = 100 // Lines kept in the UI log list
)
