// Package pool implements the work-stealing thread pool of spec §4.4: a
// fixed set of workers each owning a local deque, a global injector, and
// cross-worker stealing, plus the blocking Wait, structured Scope, and
// data-parallel primitives (ParFor, ParMap, ParMapReduce). Grounded in
// thread_pool.rs (crossbeam_deque Worker/Stealer/Injector) and generalized
// to draw its worker goroutines from a registry Partition instead of bare
// OS threads, so pool workers participate in the same reuse/pinning
// contract as pipeline nodes (C3).
package pool

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fogfactory/ppl/internal/config"
	"github.com/fogfactory/ppl/internal/deque"
	"github.com/fogfactory/ppl/internal/panics"
	"github.com/fogfactory/ppl/internal/pkglog"
	"github.com/fogfactory/ppl/internal/topology"
	"github.com/fogfactory/ppl/registry"
)

// Pool is a fixed-size work-stealing thread pool.
type Pool struct {
	workers   []*worker
	injector  *deque.Deque[func()]
	active    atomic.Int64
	term      atomic.Bool
	mu        sync.Mutex
	cond      *sync.Cond
	panics    panics.Box
	partition *registry.Partition
	numWorker int
}

// New creates a pool with as many workers as there are available CPUs.
func New() (*Pool, error) {
	return WithCapacity(len(cpusOrOne()))
}

// WithCapacity creates a pool with exactly n workers.
func WithCapacity(n int) (*Pool, error) {
	if n <= 0 {
		n = 1
	}
	cfg := config.Get()
	part, err := registry.Global().CreatePartition(n, cfg.ThreadMappingSlice(), cfg.Pinning)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		injector:  deque.New[func()](),
		partition: part,
		numWorker: n,
	}
	p.cond = sync.NewCond(&p.mu)
	p.workers = make([]*worker, n)
	for i := 0; i < n; i++ {
		w := &worker{id: i, local: deque.New[func()](), pool: p}
		p.workers[i] = w
		part.Spawn(w.run)
	}
	pkglog.L().Debug("pool: created", zap.Int("workers", n))
	return p, nil
}

// cpusOrOne returns the CPUs a default-sized pool should claim: the same
// topology-derived enumeration the registry uses for its own default
// partition, so ppl.NewThreadPool() gets one worker per available CPU
// rather than a single worker whenever PPL_THREAD_MAPPING is unset.
func cpusOrOne() []int {
	if cpus := topology.AvailableCPUs(); len(cpus) > 0 {
		return cpus
	}
	return []int{0}
}

// Clone builds a new pool with the same worker count against the same
// registry, mirroring ThreadPool::clone in the original runtime.
func (p *Pool) Clone() (*Pool, error) {
	return WithCapacity(p.numWorker)
}

func (p *Pool) terminating() bool { return p.term.Load() }

func (p *Pool) signalIdle() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Execute submits task for execution. Called from outside a worker
// goroutine, so it always goes to the injector (§4.4 "from outside: push
// to Injector").
func (p *Pool) Execute(task func()) {
	p.active.Add(1)
	p.injector.PushBottom(panics.Guard(task, &p.panics))
}

// Wait blocks the caller until every submitted task has executed, then
// re-raises the first captured panic, if any.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.active.Load() != 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
	if err := p.panics.Take(); err != nil {
		panic(err)
	}
}

// Shutdown signals all workers to exit once their queues drain and
// returns the pool's partition to the registry. No more tasks may be
// submitted afterward.
func (p *Pool) Shutdown() {
	p.term.Store(true)
	p.signalIdle()
	p.partition.Release()
}
