package farm

import (
	"sort"
	"sync"

	"github.com/fogfactory/ppl/channel"
)

// pendingSeq accumulates the parts contributed for one sequence number
// until enough replicas have reported in (1 for routed dispatch, R for
// broadcasting) to emit it in order.
type pendingSeq[O any] struct {
	parts []part[O]
}

// merger drains R replica output channels into a single downstream
// channel, per spec §4.6. Ordered mode buffers by sequence number in a
// map guarded by a mutex/condvar (the Go translation of the
// BTreeMap-keyed reorder buffer in in_node.rs/inout_node.rs); unordered
// mode simply fans everything in as it arrives.
type merger[O any] struct {
	ordered    bool
	needPerSeq int
	replicas   int
	out        channel.Sender[O]
	release    func() // releases one back-pressure permit

	mu       sync.Mutex
	cond     *sync.Cond
	pending  map[uint64]*pendingSeq[O]
	expected uint64
	doneN    int
}

func newMerger[O any](ordered bool, needPerSeq, replicas int, out channel.Sender[O], release func()) *merger[O] {
	m := &merger[O]{
		ordered:    ordered,
		needPerSeq: needPerSeq,
		replicas:   replicas,
		out:        out,
		release:    release,
		pending:    make(map[uint64]*pendingSeq[O]),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// fanIn reads from one replica's output channel until it closes (the
// replica signals end of stream this way instead of an in-band message,
// since each replica has exactly one private channel that only the
// merger drains).
func (m *merger[O]) fanIn(ch <-chan seqPart[O]) {
	defer func() {
		m.mu.Lock()
		m.doneN++
		m.mu.Unlock()
		m.cond.Broadcast()
	}()
	for sp := range ch {
		if !m.ordered {
			for _, v := range sp.part.values {
				_ = m.out.Send(channel.Val(v))
			}
			continue
		}
		m.mu.Lock()
		ps, ok := m.pending[sp.seq]
		if !ok {
			ps = &pendingSeq[O]{}
			m.pending[sp.seq] = ps
		}
		ps.parts = append(ps.parts, sp.part)
		ready := len(ps.parts) >= m.needPerSeq
		m.mu.Unlock()
		if ready {
			m.cond.Broadcast()
		}
	}
}

// drainOrdered runs on its own goroutine, emitting buffered sequences in
// order as they become ready, and returns once every replica has finished
// and the buffer is empty.
func (m *merger[O]) drainOrdered() {
	m.mu.Lock()
	for {
		for {
			ps, ok := m.pending[m.expected]
			if !ok || len(ps.parts) < m.needPerSeq {
				break
			}
			delete(m.pending, m.expected)
			m.mu.Unlock()

			sort.Slice(ps.parts, func(i, j int) bool { return ps.parts[i].replicaID < ps.parts[j].replicaID })
			for _, p := range ps.parts {
				for _, v := range p.values {
					_ = m.out.Send(channel.Val(v))
				}
			}
			if m.release != nil {
				m.release()
			}

			m.mu.Lock()
			m.expected++
		}
		if m.doneN == m.replicas && len(m.pending) == 0 {
			break
		}
		m.cond.Wait()
	}
	m.mu.Unlock()
}
