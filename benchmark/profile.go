// Package benchmark profiles a farmed pipeline stage under pprof,
// adapted from the teacher's own branching-pool profiler (profile.go)
// to the spec's Source/InOut/Sink/farm model: instead of recursively
// wrapping one function in nested Dispatch pools, it drives a single
// farmed stage at the replica count the caller passes and compares wall
// time against the equivalent sequential loop.
package benchmark

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/fogfactory/ppl/builder"
)

type intSource struct {
	n    int
	next int
}

func (s *intSource) Run() (int, bool) {
	if s.next >= s.n {
		return 0, false
	}
	s.next++
	return s.next, true
}

// slowDouble simulates a stage with real per-item latency (e.g. an API
// call), the same workload shape the teacher's dumbProc modeled with
// time.Sleep.
type slowDouble struct {
	replicas int
	work     time.Duration
}

func (d *slowDouble) Run(in int) (int, bool) {
	time.Sleep(d.work)
	return in * 2, true
}

func (d *slowDouble) Replicas() int { return d.replicas }

func (d *slowDouble) CloneStage() any {
	return &slowDouble{replicas: d.replicas, work: d.work}
}

type sumSink struct {
	total int
}

func (s *sumSink) Run(v int) { s.total += v }

func (s *sumSink) Finalize() (int, bool) { return s.total, true }

// Profile generates a CPU profile file named
// ppl_<date>_n<n>_r<replicas>.prof while running n items through a
// farmed stage with the given replica count, then prints the same
// workload run sequentially for comparison.
//
// Read the result with `go install github.com/google/pprof@latest` then
// `pprof -http=:8080 <file>`.
func Profile(n, replicas int, work time.Duration) {
	name := fmt.Sprintf("ppl_%s_n%d_r%d.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"), n, replicas)
	f, err := os.Create(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()

	sink := &sumSink{}
	p := builder.New[int]().
		Source(&intSource{n: n}).
		Then(&slowDouble{replicas: replicas, work: work}).
		Build(sink)

	func() {
		_ = pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		start := time.Now()
		total, err := p.WaitAndCollect()
		if err != nil {
			fmt.Println(err)
		}
		fmt.Printf("(par replicas=%d: %s, total=%d)\n", replicas, time.Since(start), total)
	}()

	start := time.Now()
	seqTotal := 0
	for i := 1; i <= n; i++ {
		time.Sleep(work)
		seqTotal += i * 2
	}
	fmt.Printf("(seq: %s, total=%d)\n", time.Since(start), seqTotal)
	fmt.Printf("profile:%s\n", name)
}
