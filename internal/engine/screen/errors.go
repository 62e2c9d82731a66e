package screen

import "github.com/ConserveLee/img-trace-macro/internal/engine"

// captureError reports an environment-level capture failure. It matches
// engine.ErrCaptureUnavailable so the acquisition loop counts it against its budget.
type captureError struct {
	reason string
}

func unavailable(reason string) error {
	return &captureError{reason: reason}
}

func (e *captureError) Error() string {
	return "screen capture unavailable: " + e.reason
}

func (e *captureError) Is(target error) bool {
	return target == engine.ErrCaptureUnavailable
}
