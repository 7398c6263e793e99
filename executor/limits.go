package executor

import (
	"time"

	"github.com/iarunsaragadam/isobox/model"
)

// ResourceLimits is the bundle of resource constraints applied to every
// container invocation.
type ResourceLimits struct {
	CPUSeconds     int
	WallTime       time.Duration
	MemoryBytes    int64
	StackBytes     int64
	MaxProcesses   int
	MaxOpenFiles   int
	NetworkEnabled bool
}

// DefaultLimits returns the system-wide default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		CPUSeconds:     5,
		WallTime:       10 * time.Second,
		MemoryBytes:    128 * 1024 * 1024,
		StackBytes:     64 * 1024 * 1024,
		MaxProcesses:   50,
		MaxOpenFiles:   100,
		NetworkEnabled: false,
	}
}

// goLimits is the per-language override for the Go toolchain, which needs
// extra headroom for compiler startup on every run.
func goLimits() *ResourceLimits {
	return &ResourceLimits{
		CPUSeconds:     15,
		WallTime:       30 * time.Second,
		MemoryBytes:    512 * 1024 * 1024,
		StackBytes:     128 * 1024 * 1024,
		MaxProcesses:   100,
		MaxOpenFiles:   200,
		NetworkEnabled: false,
	}
}

// EffectiveLimits derives the limits for a single test case. The base acts as
// a ceiling: a test case may lower the wall time or memory limit but never
// raise either above the base. CPU time, stack, process, file, and network
// settings are never overridden per test case.
func EffectiveLimits(base ResourceLimits, tc *model.TestCase) ResourceLimits {
	limits := base
	if tc == nil {
		return limits
	}
	if tc.TimeoutSeconds != nil && *tc.TimeoutSeconds > 0 {
		wall := time.Duration(*tc.TimeoutSeconds) * time.Second
		if wall < base.WallTime {
			limits.WallTime = wall
		}
	}
	if tc.MemoryLimitMB != nil && *tc.MemoryLimitMB > 0 {
		mem := int64(*tc.MemoryLimitMB) * 1024 * 1024
		if mem < base.MemoryBytes {
			limits.MemoryBytes = mem
		}
	}
	return limits
}

// sanitized replaces non-positive fields with the system defaults so that the
// flags handed to the container runtime are always strictly positive.
func (l ResourceLimits) sanitized() ResourceLimits {
	defaults := DefaultLimits()
	if l.CPUSeconds <= 0 {
		l.CPUSeconds = defaults.CPUSeconds
	}
	if l.WallTime <= 0 {
		l.WallTime = defaults.WallTime
	}
	if l.MemoryBytes <= 0 {
		l.MemoryBytes = defaults.MemoryBytes
	}
	if l.StackBytes <= 0 {
		l.StackBytes = defaults.StackBytes
	}
	if l.MaxProcesses <= 0 {
		l.MaxProcesses = defaults.MaxProcesses
	}
	if l.MaxOpenFiles <= 0 {
		l.MaxOpenFiles = defaults.MaxOpenFiles
	}
	return l
}
