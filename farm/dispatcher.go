package farm

import (
	"sync/atomic"

	"github.com/fogfactory/ppl/channel"
	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/internal/deque"
	"github.com/fogfactory/ppl/internal/panics"
	"github.com/fogfactory/ppl/stage"
)

// Validate checks that st can actually be replicated count times: a
// stage declaring more than one replica must implement stage.Cloner and
// its clone must still satisfy InOut[I,O]. Callers (the pipeline builder)
// should invoke this at build time rather than let farm.Run panic later.
func Validate[I, O any](st stage.InOut[I, O]) error {
	if replicaCount(st) <= 1 {
		return nil
	}
	cloner, ok := any(st).(stage.Cloner)
	if !ok {
		return errs.ErrNotCloneable
	}
	if _, ok := cloner.CloneStage().(stage.InOut[I, O]); !ok {
		return errs.ErrNotCloneable
	}
	return nil
}

const backpressureWindow = 8 // multiplied by R, per Design Notes §9

// runFarm builds the dispatcher, R replicas, and merger, per spec §4.6,
// and blocks until every one of them has drained. It runs on the
// goroutine Run already wrapped in panics.Guard, so a panic raised while
// assembling the graph (cloneStages on a non-cloneable stage) is captured
// there; each goroutine it spawns below gets its own Guard against box
// too, since a recover only catches a panic on the same goroutine that
// raised it.
func runFarm[I, O any](st stage.InOut[I, O], in channel.Receiver[I], out channel.Sender[O], replicas int, box *panics.Box) {
	ordered := isOrdered(st)
	broadcasting := isBroadcasting(st)
	static := isStatic(st)

	needPerSeq := 1
	if broadcasting {
		needPerSeq = replicas
	}

	stages := cloneStages(st, replicas)

	var dedicated []channel.Sender[I]
	var dedicatedR []channel.Receiver[I]
	useDedicated := broadcasting || static
	if useDedicated {
		dedicated = make([]channel.Sender[I], replicas)
		dedicatedR = make([]channel.Receiver[I], replicas)
		for i := 0; i < replicas; i++ {
			dedicated[i], dedicatedR[i] = channel.New[I](4)
		}
	}

	shared := deque.New[taggedIn[I]]()
	var eosFlag atomic.Bool

	var permit chan struct{}
	if ordered {
		permit = make(chan struct{}, backpressureWindow*replicas)
	}

	outChans := make([]chan seqPart[O], replicas)
	m := newMerger[O](ordered, needPerSeq, replicas, out, func() {
		if permit != nil {
			<-permit
		}
	})

	for i := 0; i < replicas; i++ {
		outChans[i] = make(chan seqPart[O], 1)
		var ri replicaInput[I]
		if useDedicated {
			ri = replicaInput[I]{dedicated: dedicatedR[i], hasDedicated: true}
		} else {
			ri = replicaInput[I]{shared: shared, eos: &eosFlag}
		}
		rep, ch := i, outChans[i]
		replicaStage := stages[i]
		go panics.Guard(func() { runReplica(rep, replicaStage, &ri, ch) }, box)()
		go panics.Guard(func() { m.fanIn(ch) }, box)()
	}

	if ordered {
		mergerDone := make(chan struct{})
		go func() {
			defer close(mergerDone)
			panics.Guard(func() { m.drainOrdered() }, box)()
		}()
		dispatch(in, replicas, static, broadcasting, dedicated, shared, &eosFlag, permit)
		<-mergerDone
	} else {
		dispatch(in, replicas, static, broadcasting, dedicated, shared, &eosFlag, permit)
		m.mu.Lock()
		for m.doneN != replicas {
			m.cond.Wait()
		}
		m.mu.Unlock()
	}
	_ = out.Send(channel.EndOfStream[O]())
}

// cloneStages is only reached with n > 1 after pipeline.Then has already
// called Validate successfully, so the type assertions below should never
// fail in practice. They stay checked rather than bare so a caller that
// skips Validate (calling farm.Run directly) gets a clean
// errs.ErrNotCloneable panic — caught by Run's panics.Guard and surfaced
// as *errs.TaskPanicked instead of an unhelpful interface-conversion
// panic.
func cloneStages[I, O any](st stage.InOut[I, O], n int) []stage.InOut[I, O] {
	stages := make([]stage.InOut[I, O], n)
	stages[0] = st
	if n == 1 {
		return stages
	}
	cloner, ok := any(st).(stage.Cloner)
	if !ok {
		panic(errs.ErrNotCloneable)
	}
	for i := 1; i < n; i++ {
		clone, ok := cloner.CloneStage().(stage.InOut[I, O])
		if !ok {
			panic(errs.ErrNotCloneable)
		}
		stages[i] = clone
	}
	return stages
}

// dispatch is the dispatcher goroutine body: it distributes upstream
// messages to replicas per spec §4.6's three routing modes, then signals
// end of stream to every replica.
func dispatch[I any](
	in channel.Receiver[I],
	replicas int,
	static, broadcasting bool,
	dedicated []channel.Sender[I],
	shared *deque.Deque[taggedIn[I]],
	eosFlag *atomic.Bool,
	permit chan struct{},
) {
	var seq uint64
	next := 0
	for {
		msg, ok := in.Recv()
		if !ok {
			break
		}
		if msg.EOS {
			break
		}
		if permit != nil {
			permit <- struct{}{}
		}
		s := seq
		seq++

		switch {
		case broadcasting:
			for i := 0; i < replicas; i++ {
				_ = dedicated[i].Send(channel.Message[I]{Value: msg.Value, Seq: s})
			}
		case static:
			_ = dedicated[next].Send(channel.Message[I]{Value: msg.Value, Seq: s})
			next = (next + 1) % replicas
		default:
			shared.PushBottom(taggedIn[I]{seq: s, value: msg.Value})
		}
	}

	if dedicated != nil {
		for i := 0; i < replicas; i++ {
			_ = dedicated[i].Send(channel.EndOfStream[I]())
		}
	} else {
		eosFlag.Store(true)
	}
}
