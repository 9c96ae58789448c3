package tracing

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/zipkin-core/internal/shared/id"
)

// ErrInvalidIdentifier is returned when a trace, span or parent id does not
// match the hex/length rules.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// IdentifierError describes which identifier failed validation
type IdentifierError struct {
	Field string
	Value string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid %s, got %q", e.Field, e.Value)
}

// Unwrap allows errors.Is(err, ErrInvalidIdentifier)
func (e *IdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// TraceContext is the immutable identity of one span within a trace.
//
// A context is never modified after construction; WithSampled, WithDebug
// and WithExtra return new values. An empty parent id marks the root of a
// trace. Extra holds opaque propagation entries that are forwarded from
// parent to child without interpretation.
type TraceContext struct {
	traceID  string
	spanID   string
	parentID string
	sampled  Sampled
	debug    bool
	extra    []interface{}
}

// Create builds a context from explicit values, typically ones read from
// propagation headers. parentID may be empty for a root context.
func Create(traceID, spanID, parentID string, sampled Sampled, debug bool, extra []interface{}) (TraceContext, error) {
	if !id.IsValidSpanID(spanID) {
		return TraceContext{}, &IdentifierError{Field: "span id", Value: spanID}
	}

	if !id.IsValidTraceID(traceID) {
		return TraceContext{}, &IdentifierError{Field: "trace id", Value: traceID}
	}

	if parentID != "" && !id.IsValidSpanID(parentID) {
		return TraceContext{}, &IdentifierError{Field: "parent span id", Value: parentID}
	}

	return TraceContext{
		traceID:  traceID,
		spanID:   spanID,
		parentID: parentID,
		sampled:  sampled,
		debug:    debug,
		extra:    copyExtra(extra),
	}, nil
}

// RootOption customizes CreateAsRoot
type RootOption func(*rootConfig)

type rootConfig struct {
	traceID128 bool
}

// WithTraceID128 makes the root use a 128-bit trace id. The span id is then
// the low 64 bits of the trace id.
func WithTraceID128() RootOption {
	return func(c *rootConfig) {
		c.traceID128 = true
	}
}

// CreateAsRoot starts a new trace. The fresh identifier is used as both the
// trace id and the span id. Pass EmptySamplingFlags() (or the zero value)
// to leave the sampling decision open.
func CreateAsRoot(flags SamplingFlags, opts ...RootOption) TraceContext {
	var cfg rootConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	traceID := id.Generate()
	spanID := traceID
	if cfg.traceID128 {
		traceID = id.Generate128()
		spanID = traceID[id.TraceID128Length-id.SpanIDLength:]
	}

	return TraceContext{
		traceID: traceID,
		spanID:  spanID,
		sampled: flags.Sampled(),
		debug:   flags.Debug(),
	}
}

// CreateFromParent derives the context of a nested unit of work. It reads
// only the parent's fixed fields, so any number of children may be derived
// concurrently from one parent.
func CreateFromParent(parent TraceContext) TraceContext {
	return TraceContext{
		traceID:  parent.traceID,
		spanID:   id.Generate(),
		parentID: parent.spanID,
		sampled:  parent.sampled,
		debug:    parent.debug,
		extra:    parent.extra,
	}
}

// WithSampled returns a copy with the sampling decision replaced
func (c TraceContext) WithSampled(sampled Sampled) TraceContext {
	c.sampled = sampled
	return c
}

// WithDebug returns a copy with the debug flag replaced
func (c TraceContext) WithDebug(debug bool) TraceContext {
	c.debug = debug
	return c
}

// WithExtra returns a copy with the propagated extras replaced
func (c TraceContext) WithExtra(extra []interface{}) TraceContext {
	c.extra = copyExtra(extra)
	return c
}

// TraceID is the identifier shared by every span in the trace
func (c TraceContext) TraceID() string {
	return c.traceID
}

// SpanID uniquely identifies this span within the trace
func (c TraceContext) SpanID() string {
	return c.spanID
}

// ParentID is the parent's span id, or "" for the root span
func (c TraceContext) ParentID() string {
	return c.parentID
}

// IsRoot reports whether this context has no parent
func (c TraceContext) IsRoot() bool {
	return c.parentID == ""
}

// IsTraceID128 reports whether the trace id is 128 bits wide
func (c TraceContext) IsTraceID128() bool {
	return len(c.traceID) == id.TraceID128Length
}

// IsValid reports whether the context was built by one of the constructors
func (c TraceContext) IsValid() bool {
	return c.traceID != "" && c.spanID != ""
}

// Sampled returns the sampling decision
func (c TraceContext) Sampled() Sampled {
	return c.sampled
}

// Debug returns whether debug mode is on
func (c TraceContext) Debug() bool {
	return c.debug
}

// SamplingFlags returns the sampling decision and debug flag together
func (c TraceContext) SamplingFlags() SamplingFlags {
	return NewSamplingFlags(c.sampled, c.debug)
}

// Extra returns a copy of the opaque propagation entries
func (c TraceContext) Extra() []interface{} {
	return copyExtra(c.extra)
}

// String returns a compact representation for logs
func (c TraceContext) String() string {
	if c.parentID == "" {
		return fmt.Sprintf("%s/%s", c.traceID, c.spanID)
	}
	return fmt.Sprintf("%s/%s<-%s", c.traceID, c.spanID, c.parentID)
}

func copyExtra(extra []interface{}) []interface{} {
	if len(extra) == 0 {
		return nil
	}
	out := make([]interface{}, len(extra))
	copy(out, extra)
	return out
}
