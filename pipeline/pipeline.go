// Package pipeline is the orchestrator of spec §4.7/§5.7: it wires
// Source/InOut/Sink stages together with channel.Message transport and
// registry partitions, generalizing the teacher's processes.go
// Run/RunAll/Pipe (one pool-process function chain) into N typed stage
// node kinds with farm sub-graphs. Because Go forbids a method from
// introducing a type parameter its receiver doesn't have, the chain is
// built with free generic functions (Source/Then/Sink) rather than
// fluent methods wherever a step changes the value's type; package
// builder layers fluent sugar for the common homogeneous-chain case on
// top of this.
package pipeline

import (
	"sync"

	"github.com/fogfactory/ppl/channel"
	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/farm"
	"github.com/fogfactory/ppl/internal/config"
	"github.com/fogfactory/ppl/internal/panics"
	"github.com/fogfactory/ppl/registry"
	"github.com/fogfactory/ppl/stage"
)

// State is the pipeline's lifecycle, per spec §4.7.
type State int

const (
	Built State = iota
	Running
	Draining
	Finished
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// channelCapacity is the buffer depth of every inter-stage channel, the
// Go stand-in for the original's unbounded crossbeam channel; bounding it
// gives natural back-pressure between stages.
const channelCapacity = 64

// Node is an in-progress pipeline chain whose next stage must consume O.
// It carries the partial partition-sizing cost so Pipeline can request a
// single right-sized registry partition up front, the shared panic box
// every node in the chain guards its goroutine against, and the first
// build-time error raised anywhere upstream (a Then whose stage failed
// farm.Validate) — carried forward rather than returned immediately
// because Go forbids a generic method from widening its receiver's type
// parameter, so Then cannot itself return an (*Node[O], error) pair
// without breaking the fluent chain; Pipeline.Start reports it instead,
// the same deferred-error idiom bufio.Scanner and html/template use.
type Node[O any] struct {
	cost   int
	err    error
	panics *panics.Box
	spawn  func(part *registry.Partition) channel.Receiver[O]
}

// Source starts a chain from a stage.Source[O].
func Source[O any](s stage.Source[O]) *Node[O] {
	box := &panics.Box{}
	return &Node[O]{
		cost:   1,
		panics: box,
		spawn: func(part *registry.Partition) channel.Receiver[O] {
			sender, receiver := channel.New[O](channelCapacity)
			part.Spawn(panics.Guard(func() {
				defer sender.Close()
				for {
					v, ok := s.Run()
					if !ok {
						_ = sender.Send(channel.EndOfStream[O]())
						return
					}
					_ = sender.Send(channel.Val(v))
				}
			}, box))
			return receiver
		},
	}
}

// Then appends an InOut[I,O] stage to prev, possibly changing the value
// type from I to O. Farm replication (spec §4.6) is transparent here:
// farm.Run handles both the R=1 and R>1 cases uniformly. A stage
// declaring more than one replica without being Cloneable fails
// farm.Validate here, at build time, rather than panicking later inside
// farm's dispatcher.
func Then[I, O any](prev *Node[I], st stage.InOut[I, O]) *Node[O] {
	err := prev.err
	if err == nil {
		err = farm.Validate(st)
	}
	return &Node[O]{
		cost:   prev.cost + farm.ReplicaCount(st),
		err:    err,
		panics: prev.panics,
		spawn: func(part *registry.Partition) channel.Receiver[O] {
			in := prev.spawn(part)
			sender, receiver := channel.New[O](channelCapacity)
			part.Spawn(panics.Guard(func() {
				defer sender.Close()
				<-farm.Run(st, in, sender, prev.panics)
			}, prev.panics))
			return receiver
		},
	}
}

// Sink terminates the chain with a stage.Sink[I,R], returning the
// Pipeline that runs and collects it.
func Sink[I, R any](prev *Node[I], sink stage.Sink[I, R]) *Pipeline[R] {
	totalCost := prev.cost + 1
	return &Pipeline[R]{
		totalCost: totalCost,
		buildErr:  prev.err,
		panics:    prev.panics,
		run: func(part *registry.Partition) (<-chan struct{}, func() (R, bool)) {
			in := prev.spawn(part)
			done := make(chan struct{})
			part.Spawn(panics.Guard(func() {
				defer close(done)
				for {
					msg, ok := in.Recv()
					if !ok || msg.EOS {
						return
					}
					sink.Run(msg.Value)
				}
			}, prev.panics))
			return done, sink.Finalize
		},
	}
}

// Pipeline is the handle returned by Sink: Built until Start, Running
// from Start until WaitAndCollect is called, Draining while
// WaitAndCollect waits for the sink's node goroutine, Finished once
// Finalize has returned. The state does not change when the source emits
// EndOfStream; a pipeline whose sink has finished stays Running until
// WaitAndCollect is called.
type Pipeline[R any] struct {
	mu        sync.Mutex
	state     State
	totalCost int
	buildErr  error
	panics    *panics.Box
	run       func(part *registry.Partition) (<-chan struct{}, func() (R, bool))

	part     *registry.Partition
	sinkDone <-chan struct{}
	collect  func() (R, bool)
	consumed bool
}

// State reports the pipeline's current lifecycle state.
func (p *Pipeline[R]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start spawns every stage's goroutines against a freshly acquired
// registry partition, sized to the sum of each node's cost (1 per plain
// node, Replicas()+2 per farmed node). Calling Start twice returns
// ErrAlreadyStarted; WaitAndCollect calls it automatically if the caller
// never did, so Start is optional for callers who don't need to
// overlap pipeline construction with unrelated work before running it.
func (p *Pipeline[R]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Built {
		return errs.ErrAlreadyStarted
	}
	if p.buildErr != nil {
		p.state = Finished
		p.consumed = true
		return p.buildErr
	}
	cfg := config.Get()
	part, err := registry.Global().CreatePartition(p.totalCost, cfg.ThreadMappingSlice(), cfg.Pinning)
	if err != nil {
		return err
	}
	sinkDone, collect := p.run(part)
	p.part = part
	p.sinkDone = sinkDone
	p.collect = collect
	p.state = Running
	return nil
}

// WaitAndCollect blocks for the pipeline to drain, then calls Finalize
// exactly once on the calling goroutine — never on the sink's own node
// goroutine, so Finalize cannot race a forwarded EndOfStream. A second
// call returns ErrAlreadyConsumed.
func (p *Pipeline[R]) WaitAndCollect() (R, error) {
	p.mu.Lock()
	if p.state == Built {
		p.mu.Unlock()
		if err := p.Start(); err != nil {
			var zero R
			return zero, err
		}
		p.mu.Lock()
	}
	if p.consumed {
		p.mu.Unlock()
		var zero R
		return zero, errs.ErrAlreadyConsumed
	}
	p.state = Draining
	sinkDone := p.sinkDone
	collect := p.collect
	box := p.panics
	p.mu.Unlock()

	<-sinkDone

	var result R
	var ok bool
	panics.Guard(func() { result, ok = collect() }, box)()

	p.mu.Lock()
	p.consumed = true
	p.state = Finished
	part := p.part
	p.mu.Unlock()

	if part != nil {
		part.Release()
	}
	if err := box.Take(); err != nil {
		panic(err)
	}
	if !ok {
		var zero R
		return zero, nil
	}
	return result, nil
}
