package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fogfactory/ppl/internal/pkglog"
	"github.com/fogfactory/ppl/internal/topology"
)

// executor is one reusable OS-thread-backed worker: the Go translation of
// core/orchestrator.rs's Executor + ExecutorInfo pair. It parks on a
// condition variable when its queue is empty and is reclaimed (not
// killed) when its partition releases it.
type executor struct {
	id      uuid.UUID
	cpu     int // -1 when unpinned
	pinned  bool
	running atomic.Bool // true once the backing goroutine has been leased

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []func()
	available atomic.Bool
	terminate atomic.Bool
}

func newExecutor(cpu int, pinned bool) *executor {
	e := &executor{
		id:     uuid.New(),
		cpu:    cpu,
		pinned: pinned,
	}
	e.cond = sync.NewCond(&e.mu)
	e.available.Store(true)
	return e
}

// ensureRunning leases a goroutine from pool (an *ants.Pool) to drive this
// executor's loop, exactly once, the first time it is actually needed.
func (e *executor) ensureRunning(submit func(func()) error) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	if err := submit(e.run); err != nil {
		pkglog.L().Error("registry: failed to lease goroutine for executor", zap.Error(err))
		e.running.Store(false)
	}
}

func (e *executor) run() {
	if e.pinned {
		if err := topology.PinCurrent(e.cpu); err != nil {
			pkglog.L().Warn("registry: executor pinning failed, continuing unpinned", zap.Int("cpu", e.cpu), zap.Error(err))
		}
	}
	for {
		job, shouldStop := e.fetch()
		if job == nil {
			if shouldStop {
				return
			}
			continue
		}
		e.available.Store(false)
		runJob(job)
		e.available.Store(true)
	}
}

// runJob executes job with a recover backstop so one misbehaving job
// never kills this executor's goroutine — it is reused across
// partitions for the life of the process, unlike a pool worker or
// pipeline node goroutine that exits when its one job is done. Callers
// that care about a job's panic (pool.Execute, pipeline's node spawns)
// already wrap their own closure in panics.Guard against a box they
// read back from; this is the fallback for a job that didn't.
func runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			pkglog.L().Error("registry: job panicked, executor continuing", zap.Any("panic", r))
		}
	}()
	job()
}

func (e *executor) fetch() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 {
		if e.terminate.Load() {
			return nil, true
		}
		e.cond.Wait()
	}
	job := e.queue[0]
	e.queue = e.queue[1:]
	// Marked busy under the same lock that emptied the queue, so isFree
	// never sees an executor that has taken a job as idle.
	e.available.Store(false)
	return job, false
}

// push enqueues a job and wakes the executor's loop.
func (e *executor) push(job func()) {
	e.mu.Lock()
	e.queue = append(e.queue, job)
	e.mu.Unlock()
	e.cond.Signal()
}

// isFree reports whether the executor is idle and has nothing queued.
func (e *executor) isFree() bool {
	e.mu.Lock()
	n := len(e.queue)
	e.mu.Unlock()
	return n == 0 && e.available.Load()
}

func (e *executor) queueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// park leaves the executor's goroutine blocked on an empty queue; it is
// not terminated, so a later Spawn on a different partition reusing this
// executor simply wakes it back up.
func (e *executor) park() {}

// terminateAndJoin signals the executor to exit once its queue drains.
// Used only by Registry.Reset for test teardown.
func (e *executor) terminateAndJoin(wg *sync.WaitGroup) {
	if wg != nil {
		e.push(func() { wg.Done() })
	}
	e.mu.Lock()
	e.terminate.Store(true)
	e.mu.Unlock()
	e.cond.Broadcast()
}
