// Package panics is the shared first-panic-wins capture box used by
// every execution surface that spec §6/§7 requires to re-raise a task's
// panic at its own join point: pool.Wait/Scope, farm's dispatcher/
// replica/merger goroutines, and pipeline's per-stage node goroutines
// (including a Sink's Finalize call, itself a user callback). One Box is
// shared across an entire pipeline run (or pool) so whichever goroutine
// panics first is the one surfaced, matching spec §7's "flagged on the
// pool, surfaced at wait()/scope exit."
package panics

import (
	"sync"

	"github.com/fogfactory/ppl/errs"
)

// Box remembers the first panic observed across any number of guarded
// calls.
type Box struct {
	mu    sync.Mutex
	first *errs.TaskPanicked
}

// Capture records v as the first panic, if none has been recorded yet.
func (b *Box) Capture(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.first == nil {
		b.first = &errs.TaskPanicked{Value: v}
	}
}

// Take returns and clears the first captured panic, if any.
func (b *Box) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.first == nil {
		return nil
	}
	err := b.first
	b.first = nil
	return err
}

// Guard wraps f so a panic inside it is captured into box instead of
// crashing the goroutine running it.
func Guard(f func(), box *Box) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				box.Capture(r)
			}
		}()
		f()
	}
}
