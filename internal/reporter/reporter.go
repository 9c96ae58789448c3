package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zipkin-core/internal/shared/id"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Record is anything that can describe itself as a Zipkin v2 span
type Record interface {
	ToMap() map[string]interface{}
}

// Reporter delivers a batch of finished spans. Implementations never
// return or raise delivery errors to the caller.
type Reporter interface {
	Report(ctx context.Context, spans []Record)
}

// Logger is the diagnostics sink for delivery failures. *zap.Logger
// satisfies it.
type Logger interface {
	Error(msg string, fields ...zap.Field)
}

// Noop discards every batch
type Noop struct{}

// Report does nothing
func (Noop) Report(context.Context, []Record) {}

// Option configures an HTTP reporter
type Option func(*HTTP)

// WithMetrics records report outcomes on m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *HTTP) {
		r.metrics = m
	}
}

// HTTP encodes span batches as a JSON array and posts them to a collector
// through a transport built per call
type HTTP struct {
	options  Options
	endpoint string
	logger   Logger
	metrics  *monitoring.Metrics

	factoryOnce sync.Once
	factory     TransportFactory
}

// NewHTTP creates a reporter. options are merged over DefaultOptions and
// checked for programmer errors; a nil factory selects an HTTPFactory built
// on first use, and a nil logger discards diagnostics.
func NewHTTP(factory TransportFactory, options Options, logger Logger, opts ...Option) (*HTTP, error) {
	merged := DefaultOptions().Merge(options)

	endpoint, err := merged.EndpointURL()
	if err != nil {
		return nil, err
	}

	if factory == nil {
		if err := validateHTTPOptions(merged); err != nil {
			return nil, err
		}
	} else if v, ok := factory.(validator); ok {
		if err := v.Validate(merged); err != nil {
			return nil, fmt.Errorf("invalid transport options: %w", err)
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	r := &HTTP{
		options:  merged,
		endpoint: endpoint,
		logger:   logger,
		factory:  factory,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Options returns a copy of the effective options
func (r *HTTP) Options() Options {
	return Options{}.Merge(r.options)
}

// Report encodes spans in order and sends them as one payload. Failures
// are logged once and swallowed; an empty batch is still sent as "[]".
func (r *HTTP) Report(ctx context.Context, spans []Record) {
	if ctx == nil {
		ctx = context.Background()
	}

	timer := monitoring.NewTimer(r.metrics)
	var batchID id.BatchID
	payloadSize := 0

	fields := func(extra ...zap.Field) []zap.Field {
		return append(extra,
			zap.String("batch_id", batchID.String()),
			zap.Int("span_count", len(spans)),
			zap.String("endpoint", r.endpoint),
		)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recovered from panic while reporting spans", fields(zap.Any("panic", p))...)
			timer.Stop(monitoring.ResultPanic, len(spans), payloadSize)
		}
	}()

	batchID = id.NewBatchID()

	payload, err := encodeSpans(spans)
	if err != nil {
		r.logger.Error("failed to encode spans", fields(zap.Error(err))...)
		timer.Stop(monitoring.ResultEncodeError, len(spans), 0)
		return
	}
	payloadSize = len(payload)

	transport, err := r.transportFactory().Build(r.options)
	if err != nil {
		r.logger.Error("failed to build transport", fields(zap.Error(err))...)
		timer.Stop(monitoring.ResultBuildError, len(spans), payloadSize)
		return
	}

	if err := transport.Send(ctx, payload); err != nil {
		r.logger.Error("failed to send spans", fields(zap.Error(err))...)
		timer.Stop(monitoring.ResultSendError, len(spans), payloadSize)
		return
	}

	timer.Stop(monitoring.ResultSent, len(spans), payloadSize)
}

func (r *HTTP) transportFactory() TransportFactory {
	r.factoryOnce.Do(func() {
		if r.factory == nil {
			r.factory = NewHTTPFactory()
		}
	})
	return r.factory
}

// ErrInvalidUTF8 is returned when a span carries a string that is not
// valid UTF-8 and so cannot form a JSON payload
var ErrInvalidUTF8 = errors.New("span data is not valid UTF-8")

// encodeSpans maps every record and encodes the ordered list as a JSON array
func encodeSpans(spans []Record) ([]byte, error) {
	items := make([]map[string]interface{}, 0, len(spans))
	for i, span := range spans {
		if span == nil {
			return nil, fmt.Errorf("span %d is nil", i)
		}
		items = append(items, span.ToMap())
	}

	payload, err := sonic.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %d spans: %w", len(spans), err)
	}
	// sonic copies string bytes through unchecked
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("encode %d spans: %w", len(spans), ErrInvalidUTF8)
	}
	return payload, nil
}
