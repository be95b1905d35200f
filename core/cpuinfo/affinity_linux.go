//go:build linux

package cpuinfo

import (
	"golang.org/x/sys/unix"
)

// PinThreadToCore binds the calling OS thread to the given core. The caller
// must have locked the goroutine to its thread first (runtime.LockOSThread);
// the reactor pool does this before pinning each worker.
func PinThreadToCore(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

// ThreadID returns the kernel thread id of the calling OS thread. Stable for
// goroutines locked to their thread, which is how the handler context keys
// its per-reactor scope stack.
func ThreadID() int {
	return unix.Gettid()
}
