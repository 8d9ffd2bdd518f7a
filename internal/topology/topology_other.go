//go:build !linux

package topology

import "runtime"

// pinCurrent is a no-op on platforms without a wired affinity syscall.
// The thread is still locked to its OS thread so the caller's "one thread
// per node/worker for life" invariant still holds; it simply floats
// unpinned across CPUs under the scheduler.
func pinCurrent(cpu int) error {
	runtime.LockOSThread()
	return nil
}
