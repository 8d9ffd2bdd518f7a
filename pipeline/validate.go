package pipeline

import (
	"fmt"
	"reflect"

	"github.com/fogfactory/ppl/errs"
)

// ValidateChain checks the shape of a pipeline assembled from a
// dynamic, config- or plugin-driven list of stages whose concrete types
// aren't known until runtime — e.g. a registry that looks stages up by
// name and hands back `any` — so Go's generics can't catch a mismatch
// between Source/Then/Sink the way pipeline.Source/Then/Sink do at
// compile time for a statically-typed chain. stages[0] must have a
// Source-shaped Run, stages[len-1] a Sink-shaped Run plus Finalize, and
// everything between an InOut-shaped Run; each stage's output type must
// equal the next stage's input type.
//
// This is reflect-based by necessity: there is no third-party shape- or
// schema-validation library in the example corpus, and reflect is the
// stdlib's own answer to "check a value's method signature you don't
// have a static type for."
func ValidateChain(stages ...any) error {
	if len(stages) < 2 {
		return fmt.Errorf("%w: chain needs at least a source and a sink", errs.ErrInvalidDispatcher)
	}

	var prevOut reflect.Type
	for i, st := range stages {
		shape, ok := classify(st)
		if !ok {
			return fmt.Errorf("%w: stage %d (%T) has no recognizable Run method", errs.ErrInvalidDispatcher, i, st)
		}

		switch {
		case i == 0:
			if shape.kind != kindSource {
				return fmt.Errorf("%w: stage 0 (%T) must be a source (Run() (O, bool))", errs.ErrInvalidDispatcher, st)
			}
		case i == len(stages)-1:
			if shape.kind != kindSink {
				return fmt.Errorf("%w: stage %d (%T) must be a sink (Run(I), Finalize() (R, bool))", errs.ErrInvalidDispatcher, i, st)
			}
		default:
			if shape.kind != kindInOut {
				return fmt.Errorf("%w: stage %d (%T) must be an in/out stage (Run(I) (O, bool))", errs.ErrInvalidDispatcher, i, st)
			}
		}

		if prevOut != nil && shape.in != nil && shape.in != prevOut {
			return fmt.Errorf("%w: stage %d (%T) expects %s, previous stage produces %s",
				errs.ErrTypeMismatch, i, st, shape.in, prevOut)
		}
		prevOut = shape.out
	}
	return nil
}

type stageKind int

const (
	kindSource stageKind = iota
	kindInOut
	kindSink
)

type shape struct {
	kind stageKind
	in   reflect.Type
	out  reflect.Type
}

// classify inspects st's Run (and, for a sink, Finalize) method
// signatures via reflection and reports which of the three stage shapes
// it matches.
func classify(st any) (shape, bool) {
	rt := reflect.TypeOf(st)
	run, ok := rt.MethodByName("Run")
	if !ok {
		return shape{}, false
	}
	// Method.Type includes the receiver as In(0) for a value obtained via
	// MethodByName on a Type (as opposed to a bound method value).
	params := run.Type.NumIn() - 1
	results := run.Type.NumOut()

	switch {
	case params == 0 && results == 2:
		return shape{kind: kindSource, out: run.Type.Out(0)}, true
	case params == 1 && results == 2:
		return shape{kind: kindInOut, in: run.Type.In(1), out: run.Type.Out(0)}, true
	case params == 1 && results == 0:
		if _, ok := rt.MethodByName("Finalize"); !ok {
			return shape{}, false
		}
		return shape{kind: kindSink, in: run.Type.In(1)}, true
	default:
		return shape{}, false
	}
}
