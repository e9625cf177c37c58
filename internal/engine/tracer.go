package engine

import "context"

// Span names reported by the Dispatcher. SpanPlan and SpanFallback cover a
// strategy building its lazy result; SpanIterate runs from then until the
// result sequence has been drained.
const (
	SpanVersion  = "engine.version"
	SpanPlan     = "engine.plan"
	SpanFallback = "engine.fallback"
	SpanIterate  = "engine.iterate"
)

// Tracer observes the phases of an evaluation. BeginSpan may return a
// derived context that is handed back to the matching EndSpan.
type Tracer interface {
	BeginSpan(ctx context.Context, name string) context.Context
	EndSpan(ctx context.Context, name string, err error)
}

// NopTracer discards spans.
type NopTracer struct{}

// BeginSpan implements Tracer.
func (NopTracer) BeginSpan(ctx context.Context, _ string) context.Context { return ctx }

// EndSpan implements Tracer.
func (NopTracer) EndSpan(context.Context, string, error) {}
