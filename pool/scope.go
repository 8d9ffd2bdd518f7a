package pool

import (
	"sync"

	"github.com/fogfactory/ppl/internal/panics"
)

// Scope is a lexically bounded group of tasks that must all complete
// before the scope exits (spec §3/§4.4). A scope does not own threads; it
// reuses the enclosing pool's workers.
type Scope struct {
	pool    *Pool
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

// Execute submits task to the pool, counted against this scope as well as
// the pool's own active-task counter.
func (s *Scope) Execute(task func()) {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	s.pool.active.Add(1)
	s.pool.injector.PushBottom(panics.Guard(func() {
		defer func() {
			s.mu.Lock()
			s.pending--
			if s.pending == 0 {
				s.cond.Broadcast()
			}
			s.mu.Unlock()
		}()
		task()
	}, &s.pool.panics))
}

// Scope runs f against a new Scope bound to the pool, then blocks until
// every task f submitted has completed.
func (p *Pool) Scope(f func(*Scope)) {
	s := &Scope{pool: p}
	s.cond = sync.NewCond(&s.mu)

	f(s)

	s.mu.Lock()
	for s.pending != 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()

	if err := p.panics.Take(); err != nil {
		panic(err)
	}
}
