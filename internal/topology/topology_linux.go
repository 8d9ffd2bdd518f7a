//go:build linux

package topology

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinCurrent sets the CPU affinity mask of the calling OS thread to the
// single given CPU via sched_setaffinity, the same mechanism
// core_affinity::set_for_current uses on Linux in the original runtime.
func pinCurrent(cpu int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
