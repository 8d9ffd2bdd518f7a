package farm

import (
	"runtime"
	"sync/atomic"

	"github.com/fogfactory/ppl/channel"
	"github.com/fogfactory/ppl/internal/deque"
	"github.com/fogfactory/ppl/stage"
)

// part is one replica's contribution for a single input sequence number:
// the (possibly empty, possibly multi-element when the stage is a
// Producer) slice of outputs that input produced.
type part[O any] struct {
	replicaID int
	values    []O
}

// replicaInput abstracts over the two ways a replica receives work:
// a dedicated channel (static routing, broadcasting) or a shared
// work-stealing deque (dynamic routing), per spec §4.6.
type replicaInput[I any] struct {
	dedicated    channel.Receiver[I]
	hasDedicated bool

	shared *deque.Deque[taggedIn[I]]
	eos    *atomic.Bool
}

type taggedIn[I any] struct {
	seq   uint64
	value I
}

// next blocks (busy-polling the shared deque when dynamic) until the next
// input is available, returning ok=false once the stream has ended.
func (ri *replicaInput[I]) next() (taggedIn[I], bool) {
	if ri.hasDedicated {
		msg, ok := ri.dedicated.Recv()
		if !ok || msg.EOS {
			return taggedIn[I]{}, false
		}
		return taggedIn[I]{seq: msg.Seq, value: msg.Value}, true
	}
	for {
		if item, ok := ri.shared.Steal(); ok {
			return item, true
		}
		if ri.eos.Load() && ri.shared.Empty() {
			return taggedIn[I]{}, false
		}
		runtime.Gosched()
	}
}

// runReplica drives one farm replica: pull tagged inputs, run the stage
// (draining Produce for producer stages), and emit one part per input to
// outCh, keyed by the input's sequence number.
func runReplica[I, O any](id int, st stage.InOut[I, O], in *replicaInput[I], outCh chan<- seqPart[O]) {
	defer close(outCh)
	producer, isProducer := any(st).(stage.Producer[O])
	for {
		item, ok := in.next()
		if !ok {
			return
		}
		var outs []O
		if result, has := st.Run(item.value); has {
			outs = append(outs, result)
		}
		if isProducer {
			for {
				v, more := producer.Produce()
				if !more {
					break
				}
				outs = append(outs, v)
			}
		}
		outCh <- seqPart[O]{seq: item.seq, part: part[O]{replicaID: id, values: outs}}
	}
}

// seqPart is what a replica goroutine hands the merger: its contribution
// for one input sequence number.
type seqPart[O any] struct {
	seq  uint64
	part part[O]
}
