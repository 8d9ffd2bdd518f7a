package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/fogfactory/ppl/internal/pkglog"
)

// JobHandle lets a caller wait for one Spawn'd job to finish, the Go
// analogue of core/orchestrator.rs's JobInfo spin-wait handle.
type JobHandle struct {
	done chan struct{}
}

func newJobHandle() *JobHandle {
	return &JobHandle{done: make(chan struct{})}
}

// Wait blocks until the job has run.
func (j *JobHandle) Wait() {
	<-j.done
}

func (j *JobHandle) signal() {
	close(j.done)
}

// Partition is an ordered set of CPU indices (when pinning is enabled)
// carved out of the registry, plus the executors currently lent to it.
// Partitions are disjoint: no two live partitions share a CPU.
type Partition struct {
	registry *Registry
	size     int
	pinning  bool
	cpus     []int // CPUs reserved for this partition, in assignment order

	mu        sync.Mutex
	executors []*executor
	released  bool
}

// Spawn runs f on one of the partition's threads. It reuses an idle
// executor if one is free, grows the partition (up to size) by leasing a
// fresh executor otherwise, and once at capacity falls back to the
// shortest queue among the partition's executors rather than blocking
// indefinitely — spec §4.3 leaves "blocks or fails per policy" open for
// the at-capacity case; we choose graceful queuing over a hard failure.
func (p *Partition) Spawn(f func()) *JobHandle {
	handle := newJobHandle()
	job := func() {
		defer handle.signal()
		f()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		pkglog.L().Warn("registry: Spawn called on released partition")
	}

	for _, e := range p.executors {
		if e.isFree() {
			e.push(job)
			return handle
		}
	}

	if len(p.executors) < p.size {
		e := p.registry.leaseExecutor(p.pinning, p.nextCPU())
		p.executors = append(p.executors, e)
		e.push(job)
		return handle
	}

	least := p.executors[0]
	for _, e := range p.executors[1:] {
		if e.queueLen() < least.queueLen() {
			least = e
		}
	}
	least.push(job)
	return handle
}

// nextCPU returns the CPU this partition should assign to its next
// executor, or -1 when unpinned.
func (p *Partition) nextCPU() int {
	if !p.pinning {
		return -1
	}
	if len(p.executors) < len(p.cpus) {
		return p.cpus[len(p.executors)]
	}
	return -1
}

// Release parks all of this partition's executors back into the
// registry's reuse pool and frees their CPUs, matching "partition.release()
// parks all its threads for reuse."
func (p *Partition) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	p.registry.reclaim(p)
	pkglog.L().Debug("registry: partition released", zap.Int("size", p.size))
}
