package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"sparqld/internal/engine"
	"sparqld/internal/errors"
)

func TestMetricsCollector_Counters(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordRequest("/sparql", http.MethodGet, 200, 10*time.Millisecond)
	m.RecordRequest("/sparql", http.MethodGet, 200, 20*time.Millisecond)
	m.RecordRequest("/sparql", http.MethodPost, 406, time.Millisecond)
	m.RecordQuery("planner")
	m.RecordError(errors.NotAcceptable)
	m.RecordRateLimitExceeded()

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/sparql", "GET", "200")); got != 2 {
		t.Errorf("GET 200 requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("planner")); got != 1 {
		t.Errorf("planner queries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("NOT_ACCEPTABLE")); got != 1 {
		t.Errorf("not acceptable errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateLimitExceeded); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
}

func TestMetricsCollector_Tracer(t *testing.T) {
	m := NewMetricsCollector()
	ctx := context.Background()

	sctx := m.BeginSpan(ctx, engine.SpanPlan)
	m.EndSpan(sctx, engine.SpanPlan, nil)
	fctx := m.BeginSpan(ctx, engine.SpanFallback)
	m.EndSpan(fctx, engine.SpanFallback, errors.New("boom"))

	// An unmatched EndSpan is ignored.
	m.EndSpan(ctx, engine.SpanVersion, nil)

	if got := testutil.ToFloat64(m.fallbacksTotal); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.spanDuration); got != 2 {
		t.Errorf("span series = %d, want 2", got)
	}
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordQuery("naive")

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	output := recorder.Body.String()
	for _, want := range []string{
		`sparqld_queries_total{strategy="naive"} 1`,
		"# TYPE sparqld_queries_total counter",
		"go_goroutines",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
