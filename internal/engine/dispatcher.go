package engine

import (
	"context"
	"time"

	"sparqld/internal/errors"
	"sparqld/internal/logging"
	"sparqld/internal/rdf"
	"sparqld/internal/sparql"
	"sparqld/internal/store"
)

// Strategy evaluates queries. A strategy that cannot handle a query shape
// returns a declined Attempt instead of an error.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (Attempt, error)
}

// Outcome is a successful evaluation.
type Outcome struct {
	Result *Result
	// LastModified is the effective version; valid when HasLastModified.
	LastModified    time.Time
	HasLastModified bool
	// Strategy names the strategy that produced Result.
	Strategy string
}

// Dispatcher runs the primary strategy and retries a declined query once
// with the secondary strategy.
type Dispatcher struct {
	primary   Strategy
	secondary Strategy
	logger    *logging.Logger
	tracer    Tracer
}

// NewDispatcher returns a dispatcher over the planner and the naive
// evaluator. A nil tracer disables tracing.
func NewDispatcher(logger *logging.Logger, tracer Tracer) *Dispatcher {
	return NewDispatcherWith(NewPlanner(), NewNaive(), logger, tracer)
}

// NewDispatcherWith returns a dispatcher over the given strategies.
func NewDispatcherWith(primary, secondary Strategy, logger *logging.Logger, tracer Tracer) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	if tracer == nil {
		tracer = NopTracer{}
	}
	return &Dispatcher{primary: primary, secondary: secondary, logger: logger, tracer: tracer}
}

// Evaluate evaluates q over ds. The dataset must already be resolved.
func (d *Dispatcher) Evaluate(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (*Outcome, error) {
	d.logger.Debug("Evaluating query: "+q.Serialize(), nil)

	out := &Outcome{}
	vctx := d.tracer.BeginSpan(ctx, SpanVersion)
	version, err := EffectiveVersion(vctx, q, st, ds)
	switch {
	case err == nil:
		out.LastModified, out.HasLastModified = version, true
		d.tracer.EndSpan(vctx, SpanVersion, nil)
	case errors.Is(err, ErrVersionNotComputable):
		d.logger.Debug("Last-Modified omitted", map[string]interface{}{
			"reason": err.Error(),
		})
		d.tracer.EndSpan(vctx, SpanVersion, nil)
	default:
		d.tracer.EndSpan(vctx, SpanVersion, err)
		return nil, err
	}

	res, name, err := d.run(ctx, q, st, ds)
	if err != nil {
		return nil, err
	}
	d.traceIteration(ctx, res)
	out.Result, out.Strategy = res, name
	return out, nil
}

// traceIteration opens SpanIterate and closes it when the caller has drained
// the result. Boolean results are computed eagerly and have no such phase.
func (d *Dispatcher) traceIteration(ctx context.Context, res *Result) {
	if res.Kind == ResultBoolean {
		return
	}
	ictx := d.tracer.BeginSpan(ctx, SpanIterate)
	res.done = func(err error) {
		d.tracer.EndSpan(ictx, SpanIterate, err)
	}
}

func (d *Dispatcher) run(ctx context.Context, q *sparql.Query, st store.QuadStore, ds store.Dataset) (*Result, string, error) {
	attempt, err := d.attempt(ctx, SpanPlan, d.primary, q, st, ds)
	if err != nil {
		return nil, "", err
	}
	if !attempt.Declined {
		return attempt.Result, d.primary.Name(), nil
	}

	d.logger.Debug("Primary strategy declined query, falling back", map[string]interface{}{
		"primary":   d.primary.Name(),
		"secondary": d.secondary.Name(),
		"reason":    attempt.Reason,
	})
	fallback, err := d.attempt(ctx, SpanFallback, d.secondary, q, st, ds)
	if err != nil {
		return nil, "", err
	}
	if fallback.Declined {
		return nil, "", errors.NewEvaluationFailure("No evaluation strategy supports this query", errors.New(fallback.Reason))
	}
	return fallback.Result, d.secondary.Name(), nil
}

func (d *Dispatcher) attempt(ctx context.Context, span string, s Strategy, q *sparql.Query, st store.QuadStore, ds store.Dataset) (Attempt, error) {
	sctx := d.tracer.BeginSpan(ctx, span)
	attempt, err := s.Evaluate(sctx, q, st, ds)
	if err != nil {
		var ee *errors.EndpointError
		if !errors.As(err, &ee) {
			err = errors.NewEvaluationFailure("Failed to evaluate query", err)
		}
	}
	d.tracer.EndSpan(sctx, span, err)
	return attempt, err
}

// SupportedLanguages lists the query languages the engine accepts.
func SupportedLanguages() []rdf.IRI {
	return []rdf.IRI{rdf.NSSD + "SPARQL10Query"}
}
