// Package input drives the real pointer and keyboard through robotgo.
package input

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

// moveSettle gives the pointer a moment to land before the button goes down.
const moveSettle = 50 * time.Millisecond

// Robot implements engine.InputInjector. Points are virtual-desktop coordinates,
// so targets on secondary displays need no extra offset.
type Robot struct {
	debugFunc func(string, ...interface{})
}

// NewRobot creates an injector. debug may be nil.
func NewRobot(debug func(string, ...interface{})) *Robot {
	if debug == nil {
		debug = func(string, ...interface{}) {}
	}
	return &Robot{debugFunc: debug}
}

// Click moves the pointer to at and presses the left button once.
func (r *Robot) Click(at image.Point) error {
	r.debugFunc("Clicking at (%d, %d)", at.X, at.Y)
	robotgo.Move(at.X, at.Y)
	time.Sleep(moveSettle)
	robotgo.Click("left")
	return nil
}

// KeyPress taps a single named key, e.g. "enter".
func (r *Robot) KeyPress(key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("no key given")
	}
	r.debugFunc("Pressing key [%s]", key)
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}
