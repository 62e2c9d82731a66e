package engine

import (
	"fmt"
	"image"
	"strings"
	"sync"
)

// fakeSampler returns the error chosen by errFn for each 1-based call.
type fakeSampler struct {
	calls int
	errFn func(call int) error
}

func (s *fakeSampler) Capture(allScreens bool) (Frame, error) {
	s.calls++
	if s.errFn != nil {
		if err := s.errFn(s.calls); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}, nil
}

type locateResult struct {
	at  image.Point
	ok  bool
	err error
}

// fakeMatcher scripts lookups per template. Calls are 1-based per template.
type fakeMatcher struct {
	calls map[string]int
	fns   map[string]func(call int) locateResult
}

func newFakeMatcher() *fakeMatcher {
	return &fakeMatcher{calls: map[string]int{}, fns: map[string]func(int) locateResult{}}
}

func (m *fakeMatcher) on(ref string, fn func(call int) locateResult) *fakeMatcher {
	m.fns[ref] = fn
	return m
}

func (m *fakeMatcher) Locate(frame Frame, ref string) (image.Point, bool, error) {
	m.calls[ref]++
	fn, ok := m.fns[ref]
	if !ok {
		return image.Point{}, false, nil
	}
	r := fn(m.calls[ref])
	return r.at, r.ok, r.err
}

// foundOn yields a match at p from call n onwards.
func foundOn(n int, p image.Point) func(int) locateResult {
	return func(call int) locateResult {
		if call >= n {
			return locateResult{at: p, ok: true}
		}
		return locateResult{}
	}
}

func never() func(int) locateResult {
	return func(int) locateResult { return locateResult{} }
}

type fakeInput struct {
	clicks   []image.Point
	keys     []string
	clickErr error
	keyErr   error
}

func (f *fakeInput) Click(at image.Point) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, at)
	return nil
}

func (f *fakeInput) KeyPress(key string) error {
	if f.keyErr != nil {
		return f.keyErr
	}
	f.keys = append(f.keys, key)
	return nil
}

// fakeMemory reports rssFn(call) for each 1-based call.
type fakeMemory struct {
	calls int
	rssFn func(call int) (uint64, error)
}

func (m *fakeMemory) ResidentBytes(pid int) (uint64, error) {
	m.calls++
	return m.rssFn(m.calls)
}

func constantMB(mb uint64) *fakeMemory {
	return &fakeMemory{rssFn: func(int) (uint64, error) { return mb << 20, nil }}
}

// countingReclaimer records the memory-monitor call index at each hint.
type countingReclaimer struct {
	memory *fakeMemory
	at     []int
}

func (r *countingReclaimer) Reclaim() {
	call := 0
	if r.memory != nil {
		call = r.memory.calls
	}
	r.at = append(r.at, call)
}

type note struct {
	title, message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Info(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{title, message})
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{})  { l.add("INFO", format, args...) }
func (l *recordingLogger) Error(format string, args ...interface{}) { l.add("ERROR", format, args...) }
func (l *recordingLogger) Debug(format string, args ...interface{}) { l.add("DEBUG", format, args...) }

// separators returns the 0-based line indexes of separator lines.
func (l *recordingLogger) separators() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var idx []int
	for i, line := range l.lines {
		if strings.HasPrefix(line, "INFO "+strings.Repeat("-", 28)+"(") {
			idx = append(idx, i)
		}
	}
	return idx
}

func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// harness wires every fake into one Capabilities value.
type harness struct {
	sampler   *fakeSampler
	matcher   *fakeMatcher
	input     *fakeInput
	memory    *fakeMemory
	reclaimer *countingReclaimer
	notifier  *recordingNotifier
	clock     *FakeClock
	log       *recordingLogger
}

func newHarness() *harness {
	mem := constantMB(100)
	return &harness{
		sampler:   &fakeSampler{},
		matcher:   newFakeMatcher(),
		input:     &fakeInput{},
		memory:    mem,
		reclaimer: &countingReclaimer{memory: mem},
		notifier:  &recordingNotifier{},
		clock:     NewFakeClock(),
		log:       &recordingLogger{},
	}
}

func (h *harness) withMemory(m *fakeMemory) *harness {
	h.memory = m
	h.reclaimer.memory = m
	return h
}

func (h *harness) caps() Capabilities {
	return Capabilities{
		Sampler:   h.sampler,
		Matcher:   h.matcher,
		Input:     h.input,
		Memory:    h.memory,
		Reclaimer: h.reclaimer,
		Notifier:  h.notifier,
		Clock:     h.clock,
		Log:       h.log,
	}
}
