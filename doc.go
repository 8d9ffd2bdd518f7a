// Package ppl is a structured parallel pipeline runtime and work-stealing
// thread pool, generalized from a goroutine-pool pipeline library into the
// typed Source/InOut/Sink/Farm model of spec.md: stages connected by typed
// channels, farmed stages replicated with static, dynamic, or broadcasting
// dispatch, all running on executors drawn from a process-wide thread
// registry instead of bare OS threads.
//
// The root package holds only convenience constructors; the real surface
// lives in package pool (the thread pool and data-parallel helpers),
// package stage (the node interfaces), package farm (the farm dispatcher),
// package pipeline (the orchestrator), and package builder (fluent
// construction sugar).
package ppl

import (
	"github.com/fogfactory/ppl/pipeline"
	"github.com/fogfactory/ppl/pool"
	"github.com/fogfactory/ppl/stage"
)

// NewThreadPool creates a work-stealing pool with one worker per available
// CPU, per spec §4.4/§6's default_parallelism.
func NewThreadPool() (*pool.Pool, error) {
	return pool.New()
}

// NewThreadPoolWithCapacity creates a work-stealing pool with exactly n
// workers.
func NewThreadPoolWithCapacity(n int) (*pool.Pool, error) {
	return pool.WithCapacity(n)
}

// BuildPipeline is the root-level, reflection-free entry point for simple
// three-stage pipelines (source, zero or more same-typed InOut stages,
// sink), re-exported here so callers who don't need builder's fluent
// ChangeType sugar can build a pipeline without importing package
// pipeline directly. It mirrors the teacher's top-level Run/RunAll
// convenience wrapping processes.go's lower-level Pipe.
func BuildPipeline[T any](source stage.Source[T], stages []stage.InOut[T, T], sink stage.Sink[T, T]) *pipeline.Pipeline[T] {
	node := pipeline.Source(source)
	for _, st := range stages {
		node = pipeline.Then(node, st)
	}
	return pipeline.Sink(node, sink)
}
