package engine

import (
	"image"
)

// Frame is one sampled screen image. Origin is the screen-space position of the
// image's top-left pixel, so frame-local matches can be turned into click targets.
type Frame struct {
	Image  image.Image
	Origin image.Point
}

// ScreenSampler captures the current display pixels.
// Capture fails with an error matching ErrCaptureUnavailable when there is no
// capturable surface; any other error is treated as unrecoverable.
type ScreenSampler interface {
	Capture(allScreens bool) (Frame, error)
}

// TemplateMatcher locates a reference image inside a frame and returns the
// screen-space centre of the match. A miss is reported as ok=false, not an error.
type TemplateMatcher interface {
	Locate(frame Frame, templateRef string) (center image.Point, ok bool, err error)
}

// InputInjector drives the pointer and keyboard.
type InputInjector interface {
	Click(at image.Point) error
	KeyPress(key string) error
}

// MemoryMonitor reports the resident set size of a process.
type MemoryMonitor interface {
	ResidentBytes(pid int) (uint64, error)
}

// Reclaimer asks the runtime to give unused memory back. It is advisory and
// must return promptly.
type Reclaimer interface {
	Reclaim()
}

// Notifier surfaces a terminal outcome to the user. Implementations must not panic.
type Notifier interface {
	Info(title, message string)
}

// Logger is the printf-style sink the engine writes diagnostics to.
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Capabilities bundles the host bindings the pipeline runs against.
type Capabilities struct {
	Sampler   ScreenSampler
	Matcher   TemplateMatcher
	Input     InputInjector
	Memory    MemoryMonitor
	Reclaimer Reclaimer
	Notifier  Notifier
	Clock     Clock
	Log       Logger
}

func (c Capabilities) withDefaults() Capabilities {
	if c.Clock == nil {
		c.Clock = RealClock{}
	}
	if c.Log == nil {
		c.Log = nopLogger{}
	}
	if c.Reclaimer == nil {
		c.Reclaimer = nopReclaimer{}
	}
	if c.Notifier == nil {
		c.Notifier = nopNotifier{}
	}
	return c
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type nopReclaimer struct{}

func (nopReclaimer) Reclaim() {}

type nopNotifier struct{}

func (nopNotifier) Info(string, string) {}
