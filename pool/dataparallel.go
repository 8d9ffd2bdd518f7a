package pool

import (
	"github.com/samber/lo"
)

// chunkCount picks how many chunks to split n items into: one per
// worker, capped so no chunk is empty.
func (p *Pool) chunkCount(n int) int {
	if n <= 0 {
		return 0
	}
	if n < p.numWorker {
		return n
	}
	return p.numWorker
}

// ParFor partitions items across the pool's workers and runs body over
// each chunk's slice, per spec §4.4. Makes no ordering claim.
func ParFor[T any](p *Pool, items []T, body func(T)) {
	n := p.chunkCount(len(items))
	if n == 0 {
		return
	}
	chunks := lo.Chunk(items, (len(items)+n-1)/n)
	p.Scope(func(s *Scope) {
		for _, chunk := range chunks {
			chunk := chunk
			s.Execute(func() {
				for _, it := range chunk {
					body(it)
				}
			})
		}
	})
}

// ParMap applies f to every element of items in parallel and returns the
// results in input order, per spec §4.4/§8 (par_map(xs, id) == xs).
func ParMap[T, R any](p *Pool, items []T, f func(T) R) []R {
	n := p.chunkCount(len(items))
	results := make([]R, len(items))
	if n == 0 {
		return results
	}
	chunkSize := (len(items) + n - 1) / n
	p.Scope(func(s *Scope) {
		for start := 0; start < len(items); start += chunkSize {
			end := start + chunkSize
			if end > len(items) {
				end = len(items)
			}
			start, end := start, end
			s.Execute(func() {
				for i := start; i < end; i++ {
					results[i] = f(items[i])
				}
			})
		}
	})
	return results
}

// ParMapReduce groups items by key within each chunk via mapFn, reduces
// each chunk's groups locally, then reduces the per-chunk partials
// together on the calling goroutine, per spec §4.4/§8 (word count).
func ParMapReduce[T any, K comparable, V any](
	p *Pool,
	items []T,
	mapFn func(T) (K, V),
	reduce func(acc V, next V) V,
) map[K]V {
	n := p.chunkCount(len(items))
	if n == 0 {
		return map[K]V{}
	}
	chunks := lo.Chunk(items, (len(items)+n-1)/n)
	partials := make([]map[K]V, len(chunks))

	p.Scope(func(s *Scope) {
		for i, chunk := range chunks {
			i, chunk := i, chunk
			s.Execute(func() {
				local := make(map[K]V, len(chunk))
				for _, it := range chunk {
					k, v := mapFn(it)
					if cur, ok := local[k]; ok {
						local[k] = reduce(cur, v)
					} else {
						local[k] = v
					}
				}
				partials[i] = local
			})
		}
	})

	final := make(map[K]V)
	for _, partial := range partials {
		for k, v := range partial {
			if cur, ok := final[k]; ok {
				final[k] = reduce(cur, v)
			} else {
				final[k] = v
			}
		}
	}
	return final
}
