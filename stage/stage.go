// Package stage defines the three stage shapes of spec §3/§6 — Source,
// InOut, Sink — plus the optional capability interfaces a stage can
// implement to opt into farm replication, ordering, broadcasting, and
// producer behavior. Go has no trait default methods, so where the
// original Rust InOut trait supplies defaults (number_of_replicas() = 1,
// is_ordered() = false, ...) we detect an override with a type assertion
// against the matching optional interface instead.
package stage

// Source produces values until Run reports ok=false, which terminates
// the stream (spec §3: Source produces Option<O>; None terminates).
type Source[O any] interface {
	Run() (out O, ok bool)
}

// InOut consumes one I and produces zero or one O per call (spec §3).
// A stage wanting to emit more than one output per input implements
// Producer as well; Run's own return value is still delivered first.
type InOut[I, O any] interface {
	Run(in I) (out O, ok bool)
}

// Sink consumes values and, once the stream ends, yields a collected
// result (spec §3: finalize(self) -> Option<R>).
type Sink[I, R any] interface {
	Run(in I)
	Finalize() (result R, ok bool)
}

// Producer is implemented by an InOut stage that, after each Run, wants
// its Produce method drained until ok=false before the next input is
// accepted — spec §3/§4.5's "producer" capability.
type Producer[O any] interface {
	Produce() (out O, ok bool)
}

// Replicated is implemented by an InOut stage that wants more than one
// farm replica. Default without this interface is 1 (no farm).
type Replicated interface {
	Replicas() int
}

// Ordered is implemented by a farmed InOut stage that needs the merger to
// preserve input order end-to-end.
type Ordered interface {
	IsOrdered() bool
}

// Broadcasting is implemented by a farmed InOut stage that wants every
// input delivered to every replica instead of being routed to one.
type Broadcasting interface {
	IsBroadcasting() bool
}

// StaticPartitioned is implemented by a farmed InOut stage that wants
// static round-robin routing across replicas instead of work-stealing
// dynamic routing (spec §4.6's a_priori_partitioning).
type StaticPartitioned interface {
	StaticPartitioning() bool
}

// Cloner is implemented by an InOut stage whose state can be duplicated
// per farm replica. Required whenever Replicas() > 1, since Go has no
// blanket Clone derive the way Rust's DynClone bound provides — per
// Design Notes §9, "treat stages as values with an explicit clone
// capability." CloneStage returns any rather than a generic S so a
// concrete stage type can implement it without repeating its own type
// parameter; the farm asserts the result back to the stage interface it
// needs.
type Cloner interface {
	CloneStage() any
}
