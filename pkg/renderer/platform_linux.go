//go:build linux

package renderer

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// LinuxPlatformHooks implements PlatformHooks on Linux via sched_setaffinity
// and setpriority, per spec.md §9's PlatformHooks design note ("Windows/
// Linux/macOS specific affinity/priority calls are out of the core; expose a
// PlatformHooks object the engine can call"). Both calls are best-effort:
// a worker goroutine that fails to pin or reprioritize still renders
// correctly, just without the OS scheduling hint, so errors are swallowed
// rather than propagated into the render path.
type LinuxPlatformHooks struct{}

// NewOSPlatformHooks returns the Linux PlatformHooks implementation.
func NewOSPlatformHooks() PlatformHooks {
	return LinuxPlatformHooks{}
}

// SetThreadAffinity pins the calling OS thread to a single CPU chosen by
// threadIndex mod NumCPU. It must run on the worker goroutine itself (it
// locks the calling goroutine to its current OS thread first), matching the
// one-worker-per-logical-core scheduling model of spec.md §5.
func (LinuxPlatformHooks) SetThreadAffinity(threadIndex int) {
	runtime.LockOSThread()

	ncpu := runtime.NumCPU()
	if ncpu <= 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(threadIndex % ncpu)
	_ = unix.SchedSetaffinity(0, &set) // 0 == calling thread
}

// SetThreadPriority raises or lowers the calling thread's "nice" value.
// priority follows the standard Unix nice range (-20 highest, 19 lowest).
func (LinuxPlatformHooks) SetThreadPriority(priority int) {
	_ = unix.Setpriority(unix.PRIO_PROCESS, 0, priority)
}
