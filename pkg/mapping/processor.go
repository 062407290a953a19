package mapping

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// ErrSkip rejects the current alternative: a match, a union branch or a
// result row. It never escapes the compiler.
var ErrSkip = errors.New("mapping: skip")

// ConfigError reports a malformed rule set.
type ConfigError struct {
	Entry int
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mapping: entry %d: %s", e.Entry, e.Msg)
}

type resultKind uint8

const (
	resultContinue resultKind = iota
	resultSkip
	resultDone
)

// Result is the outcome of a Processor.
type Result struct {
	kind  resultKind
	Value rdf.Term
}

// Continue passes v to the next processor of the chain.
func Continue(v rdf.Term) Result { return Result{kind: resultContinue, Value: v} }

// Skip rejects the value and with it the enclosing match or row.
func Skip() Result { return Result{kind: resultSkip} }

// Done ends the chain with v. A nil v stands for an absent value.
func Done(v rdf.Term) Result { return Result{kind: resultDone, Value: v} }

func (r Result) IsSkip() bool { return r.kind == resultSkip }
func (r Result) IsDone() bool { return r.kind == resultDone }

// Processor checks or transforms one argument or result value.
type Processor func(v rdf.Term) Result

// Run applies the chain to v. It returns false when a processor skips.
func Run(chain []Processor, v rdf.Term) (rdf.Term, bool) {
	for _, p := range chain {
		r := p(v)
		switch r.kind {
		case resultSkip:
			return nil, false
		case resultDone:
			return r.Value, true
		}
		v = r.Value
	}
	return v, true
}

// Replace returns a processor that maps from to to and passes anything else
// on unchanged. A nil to makes from absent.
func Replace(from, to rdf.Term) Processor {
	return func(v rdf.Term) Result {
		if v != nil && v.Equals(from) {
			return Done(to)
		}
		return Continue(v)
	}
}

// Require returns a processor that skips values failing pred. Variables are
// let through.
func Require(pred func(rdf.Term) bool) Processor {
	return func(v rdf.Term) Result {
		if _, ok := v.(*rdf.Variable); ok || pred(v) {
			return Continue(v)
		}
		return Skip()
	}
}
