// Package registry implements the process-wide thread registry (spec
// §4.3): a lazily-initialized singleton that owns reusable OS-thread-
// backed executors, carves them into disjoint partitions on request, and
// reclaims/re-parks them on release. Grounded in core/orchestrator.rs's
// Orchestrator/Partition pair, generalized here to cap partition growth at
// the requested size (the original always grows unboundedly) and to
// actually hand idle executors back for reuse across partitions.
package registry

import (
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/internal/pkglog"
	"github.com/fogfactory/ppl/internal/topology"
)

// Registry is the process-wide singleton described in spec §4.3/§9: safe
// for concurrent first-touch from multiple goroutines, no teardown before
// process exit (aside from the test-only Reset).
type Registry struct {
	mu         sync.Mutex
	pool       *ants.Pool // unbounded leasing source for executor goroutines
	freeCPUs   map[int]bool
	idleUnpin  []*executor
	idlePinned map[int]*executor // keyed by CPU
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry, creating it on first call.
func Global() *Registry {
	globalOnce.Do(func() {
		global = newRegistry()
	})
	return global
}

func newRegistry() *Registry {
	p, err := ants.NewPool(-1, ants.WithNonblocking(false))
	if err != nil {
		pkglog.L().Error("registry: failed to create backing goroutine pool", zap.Error(err))
	}
	cpus := topology.AvailableCPUs()
	free := make(map[int]bool, len(cpus))
	for _, c := range cpus {
		free[c] = true
	}
	return &Registry{
		pool:       p,
		freeCPUs:   free,
		idlePinned: make(map[int]*executor),
	}
}

// CreatePartition carves out size threads. mapping, when non-nil, gives
// the explicit CPU order to assign (spec's "mapping_slice" parameter);
// nil means "use the registry's own free-CPU order." Fails with
// ErrNotEnoughCPUs if pinning is on and fewer unassigned CPUs remain —
// per spec Design Notes, this is a hard failure, never a silent overcommit.
func (r *Registry) CreatePartition(size int, mapping []int, pinning bool) (*Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cpus []int
	if pinning {
		cpus = r.reserveCPUsLocked(size, mapping)
		if cpus == nil {
			return nil, errs.ErrNotEnoughCPUs
		}
	}

	part := &Partition{registry: r, size: size, pinning: pinning, cpus: cpus}
	pkglog.L().Debug("registry: partition created", zap.Int("size", size), zap.Bool("pinning", pinning))
	return part, nil
}

// reserveCPUsLocked picks size free CPUs in mapping order (or registry
// order if mapping is nil), marking them reserved. Returns nil if there
// are not enough free CPUs.
func (r *Registry) reserveCPUsLocked(size int, mapping []int) []int {
	candidates := mapping
	if candidates == nil {
		for c := range r.freeCPUs {
			candidates = append(candidates, c)
		}
		sort.Ints(candidates)
	}
	picked := make([]int, 0, size)
	for _, c := range candidates {
		if len(picked) == size {
			break
		}
		if r.freeCPUs[c] {
			picked = append(picked, c)
		}
	}
	if len(picked) < size {
		return nil
	}
	for _, c := range picked {
		delete(r.freeCPUs, c)
	}
	return picked
}

// leaseExecutor hands the partition a ready-to-use executor: a reclaimed
// idle one when available, a freshly leased one otherwise.
func (r *Registry) leaseExecutor(pinning bool, cpu int) *executor {
	r.mu.Lock()
	if pinning {
		if e, ok := r.idlePinned[cpu]; ok {
			delete(r.idlePinned, cpu)
			r.mu.Unlock()
			return e
		}
	} else if n := len(r.idleUnpin); n > 0 {
		e := r.idleUnpin[n-1]
		r.idleUnpin = r.idleUnpin[:n-1]
		r.mu.Unlock()
		return e
	}
	pool := r.pool
	r.mu.Unlock()

	e := newExecutor(cpu, pinning)
	e.ensureRunning(pool.Submit)
	return e
}

// reclaim returns a released partition's executors and CPUs to the
// registry's idle pool and free-CPU set.
func (r *Registry) reclaim(p *Partition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range p.executors {
		e.park()
		if e.pinned {
			r.idlePinned[e.cpu] = e
		} else {
			r.idleUnpin = append(r.idleUnpin, e)
		}
	}
	for _, c := range p.cpus {
		r.freeCPUs[c] = true
	}
}

// Reset terminates every idle executor and forgets them, for use between
// test cases so pinned-CPU bookkeeping does not leak across tests.
// Test-only; the production library never tears the registry down.
func Reset() {
	if global == nil {
		return
	}
	global.mu.Lock()
	idle := append([]*executor{}, global.idleUnpin...)
	for _, e := range global.idlePinned {
		idle = append(idle, e)
	}
	global.idleUnpin = nil
	global.idlePinned = make(map[int]*executor)
	global.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(idle))
	for _, e := range idle {
		e.terminateAndJoin(&wg)
	}
	wg.Wait()

	globalOnce = sync.Once{}
	global = nil
}
