package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// B3 propagation headers
const (
	HeaderTraceID      = "X-B3-TraceId"
	HeaderSpanID       = "X-B3-SpanId"
	HeaderParentSpanID = "X-B3-ParentSpanId"
	HeaderSampled      = "X-B3-Sampled"
	HeaderFlags        = "X-B3-Flags"
	HeaderSingle       = "b3"
)

// ErrMalformedHeader is returned for a b3 single header with the wrong shape
var ErrMalformedHeader = errors.New("malformed b3 header")

// Carrier reads and writes propagation fields
type Carrier interface {
	Get(key string) string
	Set(key, value string)
}

// MapCarrier is a Carrier over a plain map. Lookups ignore key case.
type MapCarrier map[string]string

func (c MapCarrier) Get(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	for k, v := range c {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (c MapCarrier) Set(key, value string) {
	c[key] = value
}

// HeaderCarrier adapts http.Header
type HeaderCarrier http.Header

func (c HeaderCarrier) Get(key string) string {
	return http.Header(c).Get(key)
}

func (c HeaderCarrier) Set(key, value string) {
	http.Header(c).Set(key, value)
}

// MetadataCarrier adapts gRPC metadata
type MetadataCarrier metadata.MD

func (c MetadataCarrier) Get(key string) string {
	if vals := metadata.MD(c).Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (c MetadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

// Extraction is the result of reading B3 fields. Context is set when
// identifiers were present; otherwise only Flags may carry a decision.
type Extraction struct {
	Context TraceContext
	Flags   SamplingFlags
}

// HasContext reports whether a full trace context was extracted
func (e Extraction) HasContext() bool {
	return e.Context.IsValid()
}

// IsEmpty reports whether nothing at all was propagated
func (e Extraction) IsEmpty() bool {
	return !e.HasContext() && e.Flags.IsEmpty()
}

// Extract reads a trace context from c, preferring the single b3 header
// over the multi-header form. Malformed identifiers fail with an error
// wrapping ErrInvalidIdentifier.
func Extract(c Carrier) (Extraction, error) {
	if single := c.Get(HeaderSingle); single != "" {
		return parseSingle(single)
	}

	debug := c.Get(HeaderFlags) == "1"
	sampled, err := ParseSampled(c.Get(HeaderSampled))
	if err != nil {
		return Extraction{}, err
	}
	if debug {
		sampled = SampledTrue
	}

	traceID := strings.ToLower(c.Get(HeaderTraceID))
	spanID := strings.ToLower(c.Get(HeaderSpanID))
	parentID := strings.ToLower(c.Get(HeaderParentSpanID))

	if traceID == "" && spanID == "" {
		if parentID != "" {
			return Extraction{}, &IdentifierError{Field: "trace id", Value: traceID}
		}
		return Extraction{Flags: NewSamplingFlags(sampled, debug)}, nil
	}

	tc, err := Create(traceID, spanID, parentID, sampled, debug, nil)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Context: tc, Flags: tc.SamplingFlags()}, nil
}

// parseSingle reads {traceId}-{spanId}[-{sampling}[-{parentSpanId}]] or a
// bare sampling state
func parseSingle(value string) (Extraction, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(value)), "-")

	if len(parts) == 1 {
		sampled, debug, err := parseSingleSampling(parts[0])
		if err != nil {
			return Extraction{}, err
		}
		return Extraction{Flags: NewSamplingFlags(sampled, debug)}, nil
	}

	if len(parts) > 4 {
		return Extraction{}, fmt.Errorf("%w: %q", ErrMalformedHeader, value)
	}

	var sampled Sampled
	var debug bool
	var parentID string
	if len(parts) >= 3 {
		var err error
		if sampled, debug, err = parseSingleSampling(parts[2]); err != nil {
			return Extraction{}, err
		}
	}
	if len(parts) == 4 {
		parentID = parts[3]
		if parentID == "" {
			return Extraction{}, &IdentifierError{Field: "parent span id", Value: parentID}
		}
	}

	tc, err := Create(parts[0], parts[1], parentID, sampled, debug, nil)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Context: tc, Flags: tc.SamplingFlags()}, nil
}

func parseSingleSampling(value string) (Sampled, bool, error) {
	switch value {
	case "1":
		return SampledTrue, false, nil
	case "0":
		return SampledFalse, false, nil
	case "d":
		return SampledTrue, true, nil
	default:
		return SampledUnknown, false, fmt.Errorf("%w: sampling state %q", ErrMalformedHeader, value)
	}
}

// Inject writes tc to c as B3 multi headers
func Inject(tc TraceContext, c Carrier) {
	if !tc.IsValid() {
		return
	}

	c.Set(HeaderTraceID, tc.TraceID())
	c.Set(HeaderSpanID, tc.SpanID())
	if !tc.IsRoot() {
		c.Set(HeaderParentSpanID, tc.ParentID())
	}

	// Debug implies an accept decision
	if tc.Debug() {
		c.Set(HeaderFlags, "1")
		return
	}
	if sampled, known := tc.Sampled().Bool(); known {
		if sampled {
			c.Set(HeaderSampled, "1")
		} else {
			c.Set(HeaderSampled, "0")
		}
	}
}

// InjectSingle writes tc to c as one b3 header
func InjectSingle(tc TraceContext, c Carrier) {
	if !tc.IsValid() {
		return
	}
	c.Set(HeaderSingle, FormatSingle(tc))
}

// FormatSingle renders tc in the b3 single header format. The parent id
// is only written alongside a sampling state.
func FormatSingle(tc TraceContext) string {
	var b strings.Builder
	b.WriteString(tc.TraceID())
	b.WriteByte('-')
	b.WriteString(tc.SpanID())

	state := ""
	switch {
	case tc.Debug():
		state = "d"
	case tc.Sampled() == SampledTrue:
		state = "1"
	case tc.Sampled() == SampledFalse:
		state = "0"
	}

	if state != "" {
		b.WriteByte('-')
		b.WriteString(state)
		if !tc.IsRoot() {
			b.WriteByte('-')
			b.WriteString(tc.ParentID())
		}
	}

	return b.String()
}
