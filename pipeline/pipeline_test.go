package pipeline_test

import (
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/pipeline"
	"github.com/fogfactory/ppl/registry"
	"github.com/fogfactory/ppl/stage"
)

type rangeSource struct {
	n    int
	next int
}

func (s *rangeSource) Run() (int, bool) {
	if s.next >= s.n {
		return 0, false
	}
	v := s.next
	s.next++
	return v, true
}

type fibStage struct{}

func (fibStage) Run(n int) (int, bool) {
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a, true
}

type collectSink struct {
	got []int
}

func (c *collectSink) Run(v int) { c.got = append(c.got, v) }

func (c *collectSink) Finalize() ([]int, bool) { return c.got, true }

func TestFibPipeline(t *testing.T) {
	defer registry.Reset()

	src := &rangeSource{n: 6, next: 1} // emits 1,2,3,4,5
	sink := &collectSink{}
	node := pipeline.Source[int](src)
	node = pipeline.Then[int, int](node, fibStage{})
	p := pipeline.Sink[int, []int](node, sink)

	got, err := p.WaitAndCollect()
	td.CmpNoError(t, err)
	td.Cmp(t, got, []int{1, 1, 2, 3, 5})
}

// fanOutProducer buffers the value it was given by Run and yields it
// back exactly once through Produce, modeling a 1-input-1-output stage
// expressed via the Producer capability instead of Run's own return.
type fanOutProducer struct {
	pending []int
}

func (f *fanOutProducer) Run(v int) (int, bool) {
	f.pending = append(f.pending, v)
	return 0, false
}

func (f *fanOutProducer) Produce() (int, bool) {
	if len(f.pending) == 0 {
		return 0, false
	}
	v := f.pending[0]
	f.pending = f.pending[1:]
	return v, true
}

type sumSink struct{ total int }

func (s *sumSink) Run(v int) { s.total += v }

func (s *sumSink) Finalize() (int, bool) { return s.total, true }

func TestProducerStageFlushesBufferedOutputs(t *testing.T) {
	defer registry.Reset()

	src := &rangeSource{n: 6} // emits 0,1,2,3,4,5
	sink := &sumSink{}
	node := pipeline.Source[int](src)
	node = pipeline.Then[int, int](node, &fanOutProducer{})
	p := pipeline.Sink[int, int](node, sink)

	got, err := p.WaitAndCollect()
	td.CmpNoError(t, err)
	td.Cmp(t, got, 0+1+2+3+4+5)
}

func TestWaitAndCollectTwiceFailsSecondTime(t *testing.T) {
	defer registry.Reset()

	src := &rangeSource{n: 3}
	sink := &collectSink{}
	node := pipeline.Source[int](src)
	p := pipeline.Sink[int, []int](node, sink)

	_, err := p.WaitAndCollect()
	td.CmpNoError(t, err)

	_, err = p.WaitAndCollect()
	td.CmpNotNil(t, err)
}

func TestStartTwiceFails(t *testing.T) {
	defer registry.Reset()

	src := &rangeSource{n: 1}
	sink := &collectSink{}
	node := pipeline.Source[int](src)
	p := pipeline.Sink[int, []int](node, sink)

	td.CmpNoError(t, p.Start())
	td.CmpNotNil(t, p.Start())
	_, _ = p.WaitAndCollect()
}

// uncloneableReplicated declares 3 replicas but implements no
// stage.Cloner, the build-time failure farm.Validate exists to catch.
type uncloneableReplicated struct{}

func (uncloneableReplicated) Run(in int) (int, bool) { return in, true }
func (uncloneableReplicated) Replicas() int          { return 3 }

func TestThenRejectsUncloneableReplicatedStageAtBuildTime(t *testing.T) {
	defer registry.Reset()

	src := &rangeSource{n: 3}
	sink := &collectSink{}
	node := pipeline.Source[int](src)
	node = pipeline.Then[int, int](node, uncloneableReplicated{})
	p := pipeline.Sink[int, []int](node, sink)

	td.CmpNotNil(t, p.Start())

	_, err := p.WaitAndCollect()
	td.CmpNotNil(t, err)
}

// panickyStage models a user callback that panics instead of returning;
// WaitAndCollect must re-raise it as a single panic rather than letting
// the goroutine running it crash the process.
type panickyStage struct{}

func (panickyStage) Run(int) (int, bool) { panic("boom") }

func TestWaitAndCollectRePanicsOnStagePanic(t *testing.T) {
	defer registry.Reset()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected WaitAndCollect to re-panic")
		}
	}()

	src := &rangeSource{n: 1}
	sink := &collectSink{}
	node := pipeline.Source[int](src)
	node = pipeline.Then[int, int](node, panickyStage{})
	p := pipeline.Sink[int, []int](node, sink)

	_, _ = p.WaitAndCollect()
	t.Fatal("unreachable")
}

var _ stage.InOut[int, int] = fibStage{}
