// Package channel implements the MPSC Message transport described in spec
// §4.1: a typed sender (cloneable, for multiple producers) and a single
// receiver, carrying Message[T] values where EndOfStream is an explicit
// in-band tag rather than a closed channel (per Design Notes §9 — a farm
// must count EndOfStream arrivals from R replicas before forwarding a
// single one downstream, which a closed Go channel cannot represent).
package channel

import (
	"runtime"
	"sync/atomic"

	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/internal/config"
)

// Message is either a Value or the stream terminator EndOfStream. Seq is
// set by a farm dispatcher on every message it routes to a replica and is
// read by the merger only when the farm is ordered (§4.6); it is zero on
// ordinary inter-stage messages.
type Message[T any] struct {
	Value T
	EOS   bool
	Seq   uint64
}

// Val wraps v as a Value message.
func Val[T any](v T) Message[T] { return Message[T]{Value: v} }

// EndOfStream builds the terminator message.
func EndOfStream[T any]() Message[T] { return Message[T]{EOS: true} }

// chanState is the shared state behind a sender/receiver pair: one Go
// channel plus a count of live senders so the last dropped sender closes
// it (clone-and-drop semantics for MPSC).
type chanState[T any] struct {
	ch      chan Message[T]
	senders atomic.Int64
	policy  config.WaitPolicy
}

// New creates a bounded (capacity > 0) or unbounded (capacity <= 0,
// backed by a large buffer since Go channels have no true unbounded mode)
// Message[T] channel and returns one Sender and its Receiver.
func New[T any](capacity int) (Sender[T], Receiver[T]) {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	st := &chanState[T]{
		ch:     make(chan Message[T], capacity),
		policy: config.Get().WaitMode(),
	}
	st.senders.Store(1)
	return Sender[T]{st: st}, Receiver[T]{st: st}
}

// Sender is the cloneable send half of the channel.
type Sender[T any] struct {
	st *chanState[T]
}

// Clone returns a new sender sharing the same underlying channel,
// incrementing the live-sender count so Close on any one clone does not
// close the channel until all clones have released it.
func (s Sender[T]) Clone() Sender[T] {
	s.st.senders.Add(1)
	return s
}

// Send enqueues msg, blocking (or spinning, per WAIT_POLICY) until there
// is room. Returns ErrChannelDisconnected if the channel has already been
// closed by its last sender. A receiver that stops receiving is not
// detected: Send then blocks once the buffer is full.
func (s Sender[T]) Send(msg Message[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrChannelDisconnected
		}
	}()
	if s.st.policy == config.WaitActive {
		for {
			select {
			case s.st.ch <- msg:
				return nil
			default:
				runtime.Gosched()
			}
		}
	}
	s.st.ch <- msg
	return nil
}

// Close releases this sender's share of the channel. The underlying Go
// channel is closed once the last clone has called Close.
func (s Sender[T]) Close() {
	if s.st.senders.Add(-1) == 0 {
		close(s.st.ch)
	}
}

// Receiver is the single-consumer receive half of the channel.
type Receiver[T any] struct {
	st *chanState[T]
}

// Recv blocks (or spins) until a message arrives, returning ok=false once
// every sender has closed and the buffer is drained.
func (r Receiver[T]) Recv() (Message[T], bool) {
	if r.st.policy == config.WaitActive {
		for {
			select {
			case msg, ok := <-r.st.ch:
				return msg, ok
			default:
				runtime.Gosched()
			}
		}
	}
	msg, ok := <-r.st.ch
	return msg, ok
}

// TryRecv performs a non-blocking receive regardless of wait policy. The
// third result reports whether a receive happened at all.
func (r Receiver[T]) TryRecv() (Message[T], bool, bool) {
	select {
	case msg, ok := <-r.st.ch:
		return msg, ok, true
	default:
		return Message[T]{}, false, false
	}
}
