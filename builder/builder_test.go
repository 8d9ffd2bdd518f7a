package builder_test

import (
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/builder"
	"github.com/fogfactory/ppl/registry"
)

type rangeSource struct {
	n    int
	next int
}

func (s *rangeSource) Run() (int, bool) {
	if s.next >= s.n {
		return 0, false
	}
	v := s.next
	s.next++
	return v, true
}

type addOne struct{}

func (addOne) Run(in int) (int, bool) { return in + 1, true }

type toString struct{}

func (toString) Run(in int) (string, bool) { return lenPad(in), true }

func lenPad(n int) string {
	if n < 0 {
		return "?"
	}
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, '*')
	}
	return string(out)
}

type sumSink struct{ total int }

func (s *sumSink) Run(v int) { s.total += v }

func (s *sumSink) Finalize() (int, bool) { return s.total, true }

type concatSink struct{ parts []string }

func (c *concatSink) Run(v string) { c.parts = append(c.parts, v) }

func (c *concatSink) Finalize() ([]string, bool) { return c.parts, true }

func TestHomogeneousChain(t *testing.T) {
	defer registry.Reset()

	sink := &sumSink{}
	p := builder.New[int]().
		Source(&rangeSource{n: 5}).
		Then(addOne{}).
		Then(addOne{}).
		Build(sink)

	got, err := p.WaitAndCollect()
	td.CmpNoError(t, err)
	// (0+1+1)+(1+1+1)+(2+1+1)+(3+1+1)+(4+1+1) = 2+3+4+5+6
	td.Cmp(t, got, 2+3+4+5+6)
}

func TestChangeTypeTransition(t *testing.T) {
	defer registry.Reset()

	sink := &concatSink{}
	b := builder.New[int]().Source(&rangeSource{n: 4})
	next := builder.ChangeType[int, string](b, toString{})
	p := builder.SinkAs[string, []string](next, sink)

	got, err := p.WaitAndCollect()
	td.CmpNoError(t, err)
	td.Cmp(t, got, []string{"", "*", "**", "***"})
}
