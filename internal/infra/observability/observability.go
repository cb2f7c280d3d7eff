// Package observability provides lightweight spans for timing the phases of
// a card read (initialise, read, decode) and the Prometheus metrics exported
// by the decoder, the station resolver and the history pager.
package observability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Spans
// ═══════════════════════════════════════════════════════════════════════════

// Span is one timed unit of work.
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Status    SpanStatus        `json:"status"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// SpanStatus indicates success/failure.
type SpanStatus int

const (
	SpanOK SpanStatus = iota
	SpanError
)

// Millis formats the span duration the way the console reports it, e.g. "12.34ms".
func (s Span) Millis() string {
	ms := float64(s.Duration.Microseconds()/10) / 100
	return fmt.Sprintf("%.2fms", ms)
}

// ─── Tracer ─────────────────────────────────────────────────────────────────

// Tracer records finished spans in a bounded in-memory buffer.
type Tracer struct {
	mu       sync.Mutex
	spans    []Span
	maxSpans int
	enabled  bool
}

// TracerConfig configures the tracer.
type TracerConfig struct {
	Enabled  bool
	MaxSpans int // ring buffer size (default 256)
}

// DefaultTracerConfig returns defaults sized for a CLI run.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Enabled:  true,
		MaxSpans: 256,
	}
}

// NewTracer creates a new tracer.
func NewTracer(cfg TracerConfig) *Tracer {
	if cfg.MaxSpans <= 0 {
		cfg.MaxSpans = DefaultTracerConfig().MaxSpans
	}
	return &Tracer{
		spans:    make([]Span, 0, cfg.MaxSpans),
		maxSpans: cfg.MaxSpans,
		enabled:  cfg.Enabled,
	}
}

// StartSpan begins a new span. The caller must call EndSpan.
// A disabled tracer still times the span so callers can report it.
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs map[string]string) *Span {
	return &Span{
		TraceID:   traceIDFromContext(ctx),
		SpanID:    generateID(),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanOK,
		Attrs:     attrs,
	}
}

// EndSpan completes a span and records it.
func (t *Tracer) EndSpan(span *Span, err error) {
	if span == nil {
		return
	}

	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	if err != nil {
		span.Status = SpanError
		if span.Attrs == nil {
			span.Attrs = make(map[string]string)
		}
		span.Attrs["error"] = err.Error()
	}

	PhaseDuration.WithLabelValues(span.Operation).Observe(float64(span.Duration.Microseconds()) / 1000)

	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.spans) >= t.maxSpans {
		t.spans = t.spans[1:]
	}
	t.spans = append(t.spans, *span)
}

// Spans returns a copy of the most recent spans.
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || limit > len(t.spans) {
		limit = len(t.spans)
	}

	start := len(t.spans) - limit
	out := make([]Span, limit)
	copy(out, t.spans[start:])
	return out
}

// SpanCount returns the number of recorded spans.
func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

// ─── Context Helpers ────────────────────────────────────────────────────────

type contextKey string

const traceIDKey contextKey = "farecard-trace-id"

// WithTraceID returns a context carrying traceID (a history session ID).
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return generateID()
}

var spanCounter atomic.Int64

func generateID() string {
	n := spanCounter.Add(1)
	return fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), n)
}

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Decoder Metrics ────────────────────────────────────────────────────────

// RecordsDecoded counts successfully decoded history records.
var RecordsDecoded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "decoder",
	Name:      "records_total",
	Help:      "Total history records decoded.",
})

// MalformedRecords counts blocks rejected for their length.
var MalformedRecords = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "decoder",
	Name:      "malformed_total",
	Help:      "Total history blocks rejected as malformed.",
})

// GatelessRecords counts records whose station fields were suppressed.
var GatelessRecords = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "decoder",
	Name:      "gateless_total",
	Help:      "Total decoded records without gate traversal.",
})

// FallbackResolutions counts codes that resolved to a placeholder, by kind
// (console, category, station, line).
var FallbackResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "decoder",
	Name:      "fallback_resolutions_total",
	Help:      "Total code or station resolutions that fell back to a placeholder.",
}, []string{"kind"})

// ─── Session Metrics ────────────────────────────────────────────────────────

// SessionsStarted counts history sessions created.
var SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "history",
	Name:      "sessions_total",
	Help:      "Total history sessions started.",
})

// PagesViewed counts records shown by history sessions.
var PagesViewed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "farecard",
	Subsystem: "history",
	Name:      "pages_viewed_total",
	Help:      "Total history records paged through.",
})

// ─── Phase Metrics ──────────────────────────────────────────────────────────

// PhaseDuration tracks how long each traced phase took.
var PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "farecard",
	Subsystem: "phase",
	Name:      "duration_ms",
	Help:      "Duration of traced phases in milliseconds.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
}, []string{"operation"})
