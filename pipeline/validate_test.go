package pipeline_test

import (
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/fogfactory/ppl/errs"
	"github.com/fogfactory/ppl/pipeline"
)

type intSource struct{}

func (intSource) Run() (int, bool) { return 0, false }

type intToInt struct{}

func (intToInt) Run(in int) (int, bool) { return in, true }

type stringToString struct{}

func (stringToString) Run(in string) (string, bool) { return in, true }

type intSink struct{}

func (intSink) Run(int)               {}
func (intSink) Finalize() (int, bool) { return 0, true }

func TestValidateChainAcceptsMatchingTypes(t *testing.T) {
	err := pipeline.ValidateChain(intSource{}, intToInt{}, intSink{})
	td.CmpNoError(t, err)
}

func TestValidateChainRejectsTypeMismatch(t *testing.T) {
	err := pipeline.ValidateChain(intSource{}, stringToString{}, intSink{})
	td.CmpNotNil(t, err)
	td.CmpTrue(t, errors.Is(err, errs.ErrTypeMismatch))
}

func TestValidateChainRejectsWrongShapeAtEnds(t *testing.T) {
	err := pipeline.ValidateChain(intToInt{}, intSink{})
	td.CmpNotNil(t, err)
	td.CmpTrue(t, errors.Is(err, errs.ErrInvalidDispatcher))
}
