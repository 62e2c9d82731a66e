// Package memory reads process memory through gopsutil and hints the Go runtime to
// release what it no longer needs.
package memory

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/process"
)

// Monitor implements engine.MemoryMonitor.
type Monitor struct{}

// ResidentBytes returns the resident set size of pid.
func (Monitor) ResidentBytes(pid int) (uint64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, fmt.Errorf("process %d: %w", pid, err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("memory info for %d: %w", pid, err)
	}
	return info.RSS, nil
}

// Reclaimer implements engine.Reclaimer with a forced collection.
type Reclaimer struct{}

// Reclaim runs a GC cycle and returns freed pages to the OS.
func (Reclaimer) Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}
