// Package builder supplies the idiomatic Go equivalent of the Rust
// pipeline![...] macro the spec treats as out of scope for the core: a
// small fluent builder mirroring the teacher's JobBuilder/SubJobBuilder
// pattern in examples/example_test.go (PoolSizes/Processor/Split/
// Merge/Build). Builder.Build is a thin wrapper that returns exactly the
// *pipeline.Pipeline that pipeline.Source/Then/Sink would build.
//
// Go forbids a method from introducing a type parameter its receiver
// doesn't carry, so the teacher's single "Processor" fluent method only
// translates directly for the homogeneous case (a stage whose I and O
// are the same type, i.e. repeated .Then calls that don't change the
// value's type). A step that changes the value's type — the moral
// equivalent of the teacher's Split/Merge transition — is exposed as a
// free function (ChangeType) instead of a method, exactly like the
// teacher's own Split returning a different builder type (SubJobBuilder)
// rather than chaining off JobBuilder itself.
package builder

import (
	"github.com/fogfactory/ppl/pipeline"
	"github.com/fogfactory/ppl/stage"
)

// Builder accumulates a homogeneous run of stage.InOut[T,T] stages
// behind a *pipeline.Node[T].
type Builder[T any] struct {
	node *pipeline.Node[T]
}

// New starts a builder; call Source before Then/Sink.
func New[T any]() *Builder[T] {
	return &Builder[T]{}
}

// Source sets the chain's first stage.
func (b *Builder[T]) Source(s stage.Source[T]) *Builder[T] {
	b.node = pipeline.Source(s)
	return b
}

// Then appends a same-typed InOut stage, the common case the teacher's
// fluent Processor method covers.
func (b *Builder[T]) Then(st stage.InOut[T, T]) *Builder[T] {
	b.node = pipeline.Then(b.node, st)
	return b
}

// Sink terminates the chain and builds the pipeline.
func (b *Builder[T]) Sink(sink stage.Sink[T, T]) *pipeline.Pipeline[T] {
	return pipeline.Sink(b.node, sink)
}

// Build is sugar for Sink, matching the teacher's own terminal
// JobBuilder.Build naming.
func (b *Builder[T]) Build(sink stage.Sink[T, T]) *pipeline.Pipeline[T] {
	return b.Sink(sink)
}

// ChangeType appends st to b's chain where st's output type U differs
// from T — Go's substitute for a fluent method here, since a method
// cannot introduce the new type parameter U. Returns a new Builder[U]
// to continue the fluent chain in the new type, mirroring the teacher's
// JobBuilder.Split returning a distinct SubJobBuilder.
func ChangeType[T, U any](b *Builder[T], st stage.InOut[T, U]) *Builder[U] {
	return &Builder[U]{node: pipeline.Then(b.node, st)}
}

// SinkAs terminates a chain whose accumulated value type T differs from
// the sink's result type R — the free-function counterpart of Sink for
// when result types diverge from the chain's value type.
func SinkAs[T, R any](b *Builder[T], sink stage.Sink[T, R]) *pipeline.Pipeline[R] {
	return pipeline.Sink(b.node, sink)
}
