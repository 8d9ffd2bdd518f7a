package pool_test

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/pool"
	"github.com/fogfactory/ppl/registry"
)

func TestParForVisitsEveryItem(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(4)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	items := make([]int, 1000)
	for i := range items {
		items[i] = i
	}
	var sum int64
	pool.ParFor(p, items, func(i int) { atomic.AddInt64(&sum, int64(i)) })

	td.Cmp(t, sum, int64(999*1000/2))
}

func TestParMapIsIdentityOnID(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(4)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := pool.ParMap(p, items, func(i int) int { return i })

	td.Cmp(t, got, items)
}

func TestParMapReduceWordCount(t *testing.T) {
	defer registry.Reset()

	p, err := pool.WithCapacity(4)
	td.CmpNoError(t, err)
	defer p.Shutdown()

	text := "the quick brown fox jumps over the lazy dog the fox runs"
	words := strings.Fields(text)

	counts := pool.ParMapReduce(p, words,
		func(w string) (string, int) { return w, 1 },
		func(acc, next int) int { return acc + next },
	)

	td.Cmp(t, counts["the"], 3)
	td.Cmp(t, counts["fox"], 2)
	td.Cmp(t, counts["dog"], 1)
}
