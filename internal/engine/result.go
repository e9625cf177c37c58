// Package engine evaluates parsed queries against a quad store. A Dispatcher
// runs a cost-based planner and falls back to a naive evaluator for query
// shapes the planner declines.
package engine

import (
	"iter"

	"sparqld/internal/errors"
	"sparqld/internal/rdf"
)

// ResultKind is the shape of a query result.
type ResultKind int

const (
	// ResultBoolean is an ASK answer.
	ResultBoolean ResultKind = iota
	// ResultBindings is a sequence of solutions from SELECT.
	ResultBindings
	// ResultTriples is a sequence of triples from CONSTRUCT or DESCRIBE.
	ResultTriples
)

func (k ResultKind) String() string {
	switch k {
	case ResultBoolean:
		return "boolean"
	case ResultBindings:
		return "bindings"
	case ResultTriples:
		return "triples"
	default:
		return "unknown"
	}
}

// Binding maps variable names to terms. Unbound variables are absent.
type Binding map[string]rdf.Term

// ErrConsumed is reported when a result sequence is iterated twice.
var ErrConsumed = errors.New("result sequence already consumed")

// Result is an evaluation result. Binding and triple sequences are lazy
// and can be iterated once; errors raised while producing them are
// reported by Err after iteration.
type Result struct {
	Kind    ResultKind
	Boolean bool
	// Vars is the projection of a bindings result, in order.
	Vars []string

	produceBindings func(yield func(Binding) bool) error
	produceTriples  func(yield func(rdf.Triple) bool) error
	consumed        bool
	err             error
	done            func(error)
}

// BooleanResult wraps an ASK answer.
func BooleanResult(b bool) *Result {
	return &Result{Kind: ResultBoolean, Boolean: b}
}

// BindingsResult wraps a producer of solutions.
func BindingsResult(vars []string, produce func(yield func(Binding) bool) error) *Result {
	return &Result{Kind: ResultBindings, Vars: vars, produceBindings: produce}
}

// TriplesResult wraps a producer of triples.
func TriplesResult(produce func(yield func(rdf.Triple) bool) error) *Result {
	return &Result{Kind: ResultTriples, produceTriples: produce}
}

// SliceBindings returns a bindings result over a fixed slice.
func SliceBindings(vars []string, solutions []Binding) *Result {
	return BindingsResult(vars, func(yield func(Binding) bool) error {
		for _, b := range solutions {
			if !yield(b) {
				return nil
			}
		}
		return nil
	})
}

// SliceTriples returns a triples result over a fixed slice.
func SliceTriples(triples []rdf.Triple) *Result {
	return TriplesResult(func(yield func(rdf.Triple) bool) error {
		for _, t := range triples {
			if !yield(t) {
				return nil
			}
		}
		return nil
	})
}

// Bindings returns the solution sequence.
func (r *Result) Bindings() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		if !r.begin() || r.produceBindings == nil {
			return
		}
		r.err = r.produceBindings(yield)
		r.finish()
	}
}

// Triples returns the triple sequence.
func (r *Result) Triples() iter.Seq[rdf.Triple] {
	return func(yield func(rdf.Triple) bool) {
		if !r.begin() || r.produceTriples == nil {
			return
		}
		r.err = r.produceTriples(yield)
		r.finish()
	}
}

func (r *Result) begin() bool {
	if r.consumed {
		r.err = ErrConsumed
		return false
	}
	r.consumed = true
	return true
}

// finish runs the completion hook once, after the sequence ends.
func (r *Result) finish() {
	if done := r.done; done != nil {
		r.done = nil
		done(r.err)
	}
}

// Err reports the error that ended iteration, if any.
func (r *Result) Err() error {
	return r.err
}

// CollectBindings drains a bindings result.
func CollectBindings(r *Result) ([]Binding, error) {
	var out []Binding
	for b := range r.Bindings() {
		out = append(out, b)
	}
	return out, r.Err()
}

// CollectTriples drains a triples result.
func CollectTriples(r *Result) ([]rdf.Triple, error) {
	var out []rdf.Triple
	for t := range r.Triples() {
		out = append(out, t)
	}
	return out, r.Err()
}

// Attempt is the outcome of asking one strategy to evaluate a query. A
// declined attempt carries no result and names the reason.
type Attempt struct {
	Result   *Result
	Declined bool
	Reason   string
}

// Decline builds a declined attempt.
func Decline(reason string) Attempt {
	return Attempt{Declined: true, Reason: reason}
}

// Accept builds a successful attempt.
func Accept(r *Result) Attempt {
	return Attempt{Result: r}
}
