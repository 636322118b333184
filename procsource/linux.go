//go:build linux

package procsource

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// clockTicksPerSecond is the kernel's USER_HZ value. It is effectively
// always 100 on production Linux distributions; there is no portable
// syscall-free way to read it, and none of this module's dependencies
// expose sysconf(_SC_CLK_TCK), so it is a documented constant rather
// than a queried one.
const clockTicksPerSecond = 100

// procSource reads /proc/<pid>/stat and /proc/<pid>/status directly.
// It is the real Source implementation on Linux; every read re-opens
// the files so there is no cached OS view to go stale.
type procSource struct {
	pid int
}

// NewForPID returns a Source reading telemetry for the given process ID.
func NewForPID(pid int) Source {
	return &procSource{pid: pid}
}

// NewForCurrentProcess returns a Source reading telemetry for the
// calling process — used for the host process monitor.
func NewForCurrentProcess() Source {
	return NewForPID(os.Getpid())
}

func (p *procSource) ProcessorTime() (time.Duration, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", p.pid))
	if err != nil {
		return 0, err
	}

	// The comm field (2nd, parenthesized) may itself contain spaces, so
	// split on the closing paren rather than blindly on whitespace.
	closeParen := strings.LastIndexByte(string(data), ')')
	if closeParen < 0 {
		return 0, fmt.Errorf("procsource: malformed stat line for pid %d", p.pid)
	}
	fields := strings.Fields(string(data)[closeParen+1:])
	// After the comm field, utime is field 14 overall, i.e. index 11
	// (0-based) in the remainder: state(3) ppid(4) ... utime(14) stime(15).
	const utimeIdx = 14 - 3
	const stimeIdx = 15 - 3
	if len(fields) <= stimeIdx {
		return 0, fmt.Errorf("procsource: unexpected stat field count for pid %d", p.pid)
	}

	utime, err := strconv.ParseUint(fields[utimeIdx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("procsource: parsing utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[stimeIdx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("procsource: parsing stime: %w", err)
	}

	ticks := utime + stime
	seconds := float64(ticks) / float64(clockTicksPerSecond)
	return time.Duration(seconds * float64(time.Second)), nil
}

func (p *procSource) MemoryBytes() (uint64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", p.pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("procsource: malformed VmRSS line for pid %d", p.pid)
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("procsource: parsing VmRSS: %w", err)
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("procsource: VmRSS not found for pid %d", p.pid)
}
