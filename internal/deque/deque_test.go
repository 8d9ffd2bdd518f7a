package deque_test

import (
	"sync"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/internal/deque"
)

func TestPushPopLIFO(t *testing.T) {
	d := deque.New[int]()
	d.PushBottom(1)
	d.PushBottom(2)
	d.PushBottom(3)

	v, ok := d.PopBottom()
	td.CmpTrue(t, ok)
	td.Cmp(t, v, 3)

	v, ok = d.PopBottom()
	td.CmpTrue(t, ok)
	td.Cmp(t, v, 2)
}

func TestStealFIFO(t *testing.T) {
	d := deque.New[int]()
	d.PushBottom(1)
	d.PushBottom(2)
	d.PushBottom(3)

	v, ok := d.Steal()
	td.CmpTrue(t, ok)
	td.Cmp(t, v, 1)

	v, ok = d.Steal()
	td.CmpTrue(t, ok)
	td.Cmp(t, v, 2)
}

func TestEmptyDeque(t *testing.T) {
	d := deque.New[int]()
	td.CmpTrue(t, d.Empty())
	_, ok := d.PopBottom()
	td.CmpFalse(t, ok)
	_, ok = d.Steal()
	td.CmpFalse(t, ok)
}

func TestConcurrentStealDeliversEveryItemOnce(t *testing.T) {
	d := deque.New[int]()
	const n = 2000
	for i := 0; i < n; i++ {
		d.PushBottom(i)
	}

	var mu sync.Mutex
	seen := make(map[int]bool, n)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := d.Steal()
				if !ok {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	td.Cmp(t, len(seen), n)
	td.CmpTrue(t, d.Empty())
}
