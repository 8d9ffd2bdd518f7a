package pool_test

import (
	"sync/atomic"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/pool"
	"github.com/fogfactory/ppl/registry"
)

func TestExecuteAndWait(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(4)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	var sum atomic.Int64
	for i := 1; i <= 100; i++ {
		i := i
		p.Execute(func() { sum.Add(int64(i)) })
	}
	p.Wait()

	td.Cmp(t, sum.Load(), int64(5050))
}

func TestWaitReraisesPanic(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(2)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	p.Execute(func() { panic("boom") })

	defer func() {
		r := recover()
		td.CmpNotNil(t, r)
	}()
	p.Wait()
	t.Fatal("expected Wait to re-panic")
}

func TestScopeJoinsBeforeReturning(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(4)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	var counter int64
	p.Scope(func(s *pool.Scope) {
		for i := 0; i < 1000; i++ {
			s.Execute(func() { atomic.AddInt64(&counter, 1) })
		}
	})

	td.Cmp(t, atomic.LoadInt64(&counter), int64(1000))
}

func TestClonePreservesWorkerCount(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(3)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	clone, err := p.Clone()
	td.CmpNoError(t, err)
	defer clone.Shutdown()

	done := make(chan struct{})
	clone.Execute(func() { close(done) })
	<-done
}
