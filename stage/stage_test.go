package stage_test

import (
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/stage"
)

type doubler struct{}

func (doubler) Run(in int) (int, bool) { return in * 2, true }

type replicatedDoubler struct{ n int }

func (r replicatedDoubler) Run(in int) (int, bool) { return in * 2, true }
func (r replicatedDoubler) Replicas() int          { return r.n }
func (r replicatedDoubler) CloneStage() any        { return r }

func TestPlainStageHasNoOptionalCapabilities(t *testing.T) {
	var st stage.InOut[int, int] = doubler{}
	_, ok := any(st).(stage.Replicated)
	td.CmpFalse(t, ok)
	_, ok = any(st).(stage.Ordered)
	td.CmpFalse(t, ok)
}

func TestReplicatedStageDetected(t *testing.T) {
	var st stage.InOut[int, int] = replicatedDoubler{n: 3}
	r, ok := any(st).(stage.Replicated)
	td.CmpTrue(t, ok)
	td.Cmp(t, r.Replicas(), 3)

	cloner, ok := any(st).(stage.Cloner)
	td.CmpTrue(t, ok)
	clone, ok := cloner.CloneStage().(stage.InOut[int, int])
	td.CmpTrue(t, ok)
	out, has := clone.Run(5)
	td.CmpTrue(t, has)
	td.Cmp(t, out, 10)
}
