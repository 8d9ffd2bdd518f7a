package pool

import (
	"math/rand"
	"runtime"

	"github.com/fogfactory/ppl/internal/config"
	"github.com/fogfactory/ppl/internal/deque"
)

// worker is one record of the pool's fixed worker set: a local deque plus
// a reference back to the pool for the injector and sibling stealers, per
// spec §3/§4.4.
type worker struct {
	id    int
	local *deque.Deque[func()]
	pool  *Pool
}

// run is the worker loop of spec §4.4: pop bottom (LIFO) -> steal from
// injector (FIFO) -> randomized steal from each other worker's top (FIFO)
// -> park/yield and retry; exits once terminate is signalled, the deques
// are empty, and the active-task counter is zero.
func (w *worker) run() {
	passive := config.Get().WaitMode() == config.WaitPassive
	for {
		if job, ok := w.local.PopBottom(); ok {
			w.exec(job)
			continue
		}
		if job, ok := w.pool.injector.Steal(); ok {
			w.exec(job)
			continue
		}
		if job, ok := w.stealFromSiblings(); ok {
			w.exec(job)
			continue
		}
		if w.pool.terminating() && w.pool.active.Load() == 0 {
			return
		}
		if passive {
			runtime.Gosched()
		}
	}
}

func (w *worker) exec(job func()) {
	job()
	w.pool.active.Add(-1)
	w.pool.signalIdle()
}

// stealFromSiblings attempts one steal from each other worker's top, in a
// randomized order so no worker is favored as a steal victim.
func (w *worker) stealFromSiblings() (func(), bool) {
	order := rand.Perm(len(w.pool.workers))
	for _, i := range order {
		sib := w.pool.workers[i]
		if sib == w {
			continue
		}
		if job, ok := sib.local.Steal(); ok {
			return job, true
		}
	}
	return nil, false
}
