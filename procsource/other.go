//go:build !linux

package procsource

import (
	"fmt"
	"os"
	"time"
)

// procSource is the non-Linux stand-in. There is no portable,
// dependency-free way to read another process's CPU/memory telemetry
// outside of /proc, so off-Linux builds report an error rather than
// silently returning zero values that would masquerade as health.
type procSource struct {
	pid int
}

// NewForPID returns a Source for the given process ID.
func NewForPID(pid int) Source {
	return &procSource{pid: pid}
}

// NewForCurrentProcess returns a Source for the calling process.
func NewForCurrentProcess() Source {
	return NewForPID(os.Getpid())
}

func (p *procSource) ProcessorTime() (time.Duration, error) {
	return 0, fmt.Errorf("procsource: process telemetry is unsupported on this platform")
}

func (p *procSource) MemoryBytes() (uint64, error) {
	return 0, fmt.Errorf("procsource: process telemetry is unsupported on this platform")
}
