// Package farm implements the farm dispatcher of spec §4.6: replicating
// an InOut stage R times, routing input messages to replicas (static
// round-robin, dynamic work-stealing, or broadcasting), and merging
// replica outputs back into one downstream channel, preserving input
// order when the stage declares itself ordered. Grounded in
// node/inout_node.rs's NodeWorker (steal-based dynamic routing via a
// crossbeam deque) and the OrderedSplitter/BTreeMap reorder buffer shared
// by in_node.rs and inout_node.rs.
package farm

import (
	"github.com/fogfactory/ppl/channel"
	"github.com/fogfactory/ppl/internal/config"
	"github.com/fogfactory/ppl/internal/panics"
	"github.com/fogfactory/ppl/stage"
)

// Run wires st between in and out. When st declares more than one
// replica it builds the full dispatcher/replica/merger graph; with one
// replica (the default) it runs the stage directly on a single goroutine,
// satisfying spec §8's "Farm with R=1 behaves identically to a
// non-farmed InOut stage" by construction rather than as a special case
// callers must remember to handle.
//
// box captures any panic raised by st's Run/Produce or by farm-internal
// setup (a non-cloneable Replicated stage, per Validate), so the caller's
// join point can re-raise it instead of the goroutine crashing the
// process (spec §7). Callers that have no pipeline-wide box of their own
// may pass a fresh &panics.Box{} and inspect Take() after done closes.
//
// The returned channel closes once exactly one EndOfStream has been
// forwarded to out and every goroutine Run spawned has exited.
func Run[I, O any](st stage.InOut[I, O], in channel.Receiver[I], out channel.Sender[O], box *panics.Box) <-chan struct{} {
	replicas := replicaCount(st)
	done := make(chan struct{})
	if replicas <= 1 {
		go func() {
			defer close(done)
			panics.Guard(func() { runSingle(st, in, out) }, box)()
		}()
		return done
	}
	go func() {
		defer close(done)
		panics.Guard(func() { runFarm(st, in, out, replicas, box) }, box)()
	}()
	return done
}

// ReplicaCount reports the thread cost of st that the pipeline
// orchestrator adds up to size the registry partition it requests before
// Start: 1 for a plain stage, or Replicas()+2 (replicas plus dispatcher
// and merger) for a farmed one. It is not the number of goroutines Run
// starts: a farmed Run starts one per replica and one fan-in per replica
// besides its dispatcher, plus a merger when ordered.
func ReplicaCount[I, O any](st stage.InOut[I, O]) int {
	r := replicaCount(st)
	if r <= 1 {
		return 1
	}
	return r + 2
}

func replicaCount[I, O any](st stage.InOut[I, O]) int {
	if r, ok := any(st).(stage.Replicated); ok {
		if n := r.Replicas(); n > 0 {
			return n
		}
	}
	return 1
}

func isOrdered[I, O any](st stage.InOut[I, O]) bool {
	o, ok := any(st).(stage.Ordered)
	return ok && o.IsOrdered()
}

func isBroadcasting[I, O any](st stage.InOut[I, O]) bool {
	b, ok := any(st).(stage.Broadcasting)
	return ok && b.IsBroadcasting()
}

// isStatic resolves the Open Question in spec §9: a stage's own
// a_priori_partitioning declaration wins; absent that, SCHEDULE from
// configuration is the default.
func isStatic[I, O any](st stage.InOut[I, O]) bool {
	if s, ok := any(st).(stage.StaticPartitioned); ok {
		return s.StaticPartitioning()
	}
	return config.Get().ScheduleMode() == config.ScheduleStatic
}

// runSingle is the non-farmed InOut node loop of spec §4.5.
func runSingle[I, O any](st stage.InOut[I, O], in channel.Receiver[I], out channel.Sender[O]) {
	producer, isProducer := any(st).(stage.Producer[O])
	for {
		msg, ok := in.Recv()
		if !ok {
			return
		}
		if msg.EOS {
			_ = out.Send(channel.EndOfStream[O]())
			return
		}
		if result, has := st.Run(msg.Value); has {
			_ = out.Send(channel.Val(result))
		}
		if isProducer {
			for {
				v, more := producer.Produce()
				if !more {
					break
				}
				_ = out.Send(channel.Val(v))
			}
		}
	}
}
