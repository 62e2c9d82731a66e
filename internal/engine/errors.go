package engine

import "errors"

// ErrCaptureUnavailable marks a transient sampling failure: there was no surface to
// capture. The acquisition loop counts these against its failure budget.
var ErrCaptureUnavailable = errors.New("no capturable screen surface")

// ErrSampleBudgetExhausted is returned by the acquisition loop once consecutive
// capture failures reach the configured budget.
var ErrSampleBudgetExhausted = errors.New("sample failure budget exhausted")

// IsCaptureUnavailable reports whether err is a transient capture failure.
func IsCaptureUnavailable(err error) bool {
	return errors.Is(err, ErrCaptureUnavailable)
}
