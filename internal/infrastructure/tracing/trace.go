package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zipkin-core/internal/reporter"
	"go.uber.org/zap"
)

// Drop reasons recorded on the dropped-span metric
const (
	DropBufferFull = "buffer_full"
	DropNotSampled = "not_sampled"
	DropClosed     = "closed"
)

const (
	defaultBufferSize    = 1000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	defaultReportTimeout = 10 * time.Second
)

// Tracer creates spans and hands finished ones to a reporter in batches.
// The reporter is called from a single collector goroutine.
type Tracer struct {
	service  string
	logger   *zap.Logger
	reporter reporter.Reporter
	metrics  *monitoring.Metrics

	localEndpoint *Endpoint
	flags         SamplingFlags
	traceID128    bool

	bufferSize    int
	batchSize     int
	flushInterval time.Duration
	reportTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	spans  chan *Span
	done   chan struct{}
}

// Option configures a Tracer
type Option func(*Tracer)

// WithMetrics records started and dropped spans on m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Tracer) {
		t.metrics = m
	}
}

// WithDefaultSamplingFlags sets the flags of new root spans
func WithDefaultSamplingFlags(flags SamplingFlags) Option {
	return func(t *Tracer) {
		t.flags = flags
	}
}

// WithTraceID128Roots makes new root spans use 128-bit trace ids
func WithTraceID128Roots() Option {
	return func(t *Tracer) {
		t.traceID128 = true
	}
}

// WithLocalEndpoint overrides the endpoint attached to every span
func WithLocalEndpoint(e *Endpoint) Option {
	return func(t *Tracer) {
		t.localEndpoint = e
	}
}

// WithBufferSize sets how many finished spans may wait for the collector
func WithBufferSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.bufferSize = n
		}
	}
}

// WithBatchSize sets the number of spans that triggers an immediate report
func WithBatchSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithFlushInterval sets how often a partial batch is reported
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.flushInterval = d
		}
	}
}

// WithReportTimeout bounds each report call made by the collector
func WithReportTimeout(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.reportTimeout = d
		}
	}
}

// New creates a tracer for service and starts its collector. Close must
// be called to flush buffered spans.
func New(service string, logger *zap.Logger, rep reporter.Reporter, opts ...Option) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rep == nil {
		rep = reporter.Noop{}
	}

	t := &Tracer{
		service:       service,
		logger:        logger,
		reporter:      rep,
		localEndpoint: &Endpoint{ServiceName: service},
		bufferSize:    defaultBufferSize,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		reportTimeout: defaultReportTimeout,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.spans = make(chan *Span, t.bufferSize)
	t.done = make(chan struct{})

	// Start span collector
	go t.collectSpans()

	return t
}

// Service returns the service name spans are attributed to
func (t *Tracer) Service() string {
	return t.service
}

// SpanOption customizes StartSpan
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind   Kind
	parent *TraceContext
	flags  *SamplingFlags
}

// WithKind sets the span kind
func WithKind(kind Kind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// WithParent makes the span a child of parent instead of the context's span
func WithParent(parent TraceContext) SpanOption {
	return func(c *spanConfig) {
		c.parent = &parent
	}
}

// WithSamplingFlags sets the flags used if the span starts a new trace
func WithSamplingFlags(flags SamplingFlags) SpanOption {
	return func(c *spanConfig) {
		c.flags = &flags
	}
}

// StartSpan creates a span that is a child of the trace context carried by
// ctx, or the root of a new trace when there is none. The returned context
// carries the new span's trace context.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (*Span, context.Context) {
	var cfg spanConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var tc TraceContext
	if cfg.parent != nil && cfg.parent.IsValid() {
		tc = CreateFromParent(*cfg.parent)
	} else if parent, ok := FromContext(ctx); ok {
		tc = CreateFromParent(parent)
	} else {
		flags := t.flags
		if cfg.flags != nil {
			flags = *cfg.flags
		}
		var rootOpts []RootOption
		if t.traceID128 {
			rootOpts = append(rootOpts, WithTraceID128())
		}
		tc = CreateAsRoot(flags, rootOpts...)
	}

	t.metrics.IncSpansStarted()

	span := NewSpan(tc, name, cfg.kind, t.localEndpoint)
	return span, NewContext(ctx, tc)
}

// Submit queues a span for reporting without blocking. Unfinished spans
// are finished first. Spans with a negative sampling decision, spans that
// arrive after Close, and spans that do not fit in the buffer are dropped.
func (t *Tracer) Submit(span *Span) {
	if span == nil {
		return
	}
	if !span.Finished() {
		span.Finish()
	}

	if span.Context.Sampled() == SampledFalse && !span.Context.Debug() {
		t.metrics.RecordDroppedSpan(DropNotSampled)
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.metrics.RecordDroppedSpan(DropClosed)
		t.logger.Warn("tracer closed, dropping span", spanFields(span)...)
		return
	}

	select {
	case t.spans <- span:
	default:
		t.metrics.RecordDroppedSpan(DropBufferFull)
		t.logger.Warn("span buffer full, dropping span", spanFields(span)...)
	}
}

// Close stops accepting spans and waits until the buffered ones have been
// reported or ctx is done
func (t *Tracer) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.spans)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collectSpans batches queued spans by size and interval
func (t *Tracer) collectSpans() {
	defer close(t.done)

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	batch := make([]reporter.Record, 0, t.batchSize)
	for {
		select {
		case span, ok := <-t.spans:
			if !ok {
				t.flush(batch)
				return
			}
			batch = append(batch, span)
			if len(batch) >= t.batchSize {
				t.flush(batch)
				batch = make([]reporter.Record, 0, t.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]reporter.Record, 0, t.batchSize)
			}
		}
	}
}

func (t *Tracer) flush(batch []reporter.Record) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.reportTimeout)
	defer cancel()

	t.reporter.Report(ctx, batch)
	t.logger.Debug("reported spans", zap.String("service", t.service), zap.Int("count", len(batch)))
}

func spanFields(span *Span) []zap.Field {
	return []zap.Field{
		zap.String("trace_id", span.Context.TraceID()),
		zap.String("span_id", span.Context.SpanID()),
		zap.String("operation", span.Name),
	}
}

// Context keys for trace propagation
type contextKey string

const traceContextKey contextKey = "trace_context"

// NewContext returns a copy of ctx carrying tc
func NewContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey, tc)
}

// FromContext retrieves the trace context stored by NewContext
func FromContext(ctx context.Context) (TraceContext, bool) {
	if ctx == nil {
		return TraceContext{}, false
	}
	tc, ok := ctx.Value(traceContextKey).(TraceContext)
	return tc, ok && tc.IsValid()
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	tc, _ := FromContext(ctx)
	return tc.TraceID()
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) string {
	tc, _ := FromContext(ctx)
	return tc.SpanID()
}

// LogFields returns zap fields identifying the span in ctx, for correlating
// log lines with traces
func LogFields(ctx context.Context) []zap.Field {
	tc, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", tc.TraceID()),
		zap.String("span_id", tc.SpanID()),
	}
}
