package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/internal/topology"
	"github.com/fogfactory/ppl/registry"
)

func TestCreatePartitionRunsWork(t *testing.T) {
	defer registry.Reset()

	part, err := registry.Global().CreatePartition(2, nil, false)
	td.CmpNoError(t, err)
	defer part.Release()

	var mu sync.Mutex
	sum := 0
	var handles []*registry.JobHandle
	for i := 1; i <= 10; i++ {
		i := i
		handles = append(handles, part.Spawn(func() {
			mu.Lock()
			sum += i
			mu.Unlock()
		}))
	}
	for _, h := range handles {
		h.Wait()
	}

	td.Cmp(t, sum, 55)
}

func TestDisjointPinnedPartitionsDoNotShareCPUs(t *testing.T) {
	defer registry.Reset()

	a, err := registry.Global().CreatePartition(1, nil, true)
	td.CmpNoError(t, err)
	defer a.Release()

	// a holds one CPU, so a request for every available CPU cannot be met.
	_, err = registry.Global().CreatePartition(len(topology.AvailableCPUs()), nil, true)
	td.CmpTrue(t, errors.Is(err, errs.ErrNotEnoughCPUs))

	b, err := registry.Global().CreatePartition(1, nil, true)
	if err != nil {
		// fewer than 2 CPUs available in this environment; nothing to assert.
		return
	}
	defer b.Release()
}

func TestReleaseAllowsReuse(t *testing.T) {
	defer registry.Reset()

	part, err := registry.Global().CreatePartition(1, nil, false)
	td.CmpNoError(t, err)

	done := make(chan struct{})
	part.Spawn(func() { close(done) })
	<-done
	part.Release()

	part2, err := registry.Global().CreatePartition(1, nil, false)
	td.CmpNoError(t, err)
	defer part2.Release()

	done2 := make(chan struct{})
	part2.Spawn(func() { close(done2) })
	<-done2
}
