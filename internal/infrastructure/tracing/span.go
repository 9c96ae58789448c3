package tracing

import (
	"strings"
	"sync"
)

// Kind describes the role of a span in an RPC or messaging exchange
type Kind string

const (
	KindUnspecified Kind = ""
	KindClient      Kind = "CLIENT"
	KindServer      Kind = "SERVER"
	KindProducer    Kind = "PRODUCER"
	KindConsumer    Kind = "CONSUMER"
)

// Endpoint identifies the network context of a span
type Endpoint struct {
	ServiceName string
	IPv4        string
	IPv6        string
	Port        int
}

func (e *Endpoint) toMap() map[string]interface{} {
	m := make(map[string]interface{}, 4)
	if e.ServiceName != "" {
		m["serviceName"] = strings.ToLower(e.ServiceName)
	}
	if e.IPv4 != "" {
		m["ipv4"] = e.IPv4
	}
	if e.IPv6 != "" {
		m["ipv6"] = e.IPv6
	}
	if e.Port > 0 {
		m["port"] = e.Port
	}
	return m
}

// Annotation is a timestamped event within a span
type Annotation struct {
	Timestamp int64
	Value     string
}

// Span records one timed operation. Timestamp and Duration are in epoch
// microseconds.
type Span struct {
	Context        TraceContext
	Name           string
	Kind           Kind
	Timestamp      int64
	Duration       int64
	LocalEndpoint  *Endpoint
	RemoteEndpoint *Endpoint
	Tags           map[string]string
	Annotations    []Annotation
	Shared         bool

	mu       sync.Mutex
	finished bool
}

// NewSpan creates a started span for the given context
func NewSpan(tc TraceContext, name string, kind Kind, local *Endpoint) *Span {
	return &Span{
		Context:       tc,
		Name:          name,
		Kind:          kind,
		Timestamp:     Now(),
		LocalEndpoint: local,
		Tags:          make(map[string]string),
	}
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	if err == nil {
		return
	}
	s.SetTag("error", err.Error())
}

// SetRemoteEndpoint records the peer of a client or server span
func (s *Span) SetRemoteEndpoint(e *Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RemoteEndpoint = e
}

// Annotate adds an event at the current time
func (s *Span) Annotate(value string) {
	s.AnnotateAt(Now(), value)
}

// AnnotateAt adds an event at an explicit timestamp
func (s *Span) AnnotateAt(ts int64, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Annotations = append(s.Annotations, Annotation{Timestamp: ts, Value: value})
}

// Finish marks the span as complete. Only the first call has an effect.
func (s *Span) Finish() {
	s.FinishAt(Now())
}

// FinishAt completes the span at an explicit timestamp
func (s *Span) FinishAt(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true

	duration := ts - s.Timestamp
	if duration < 1 {
		// Zipkin rejects zero durations
		duration = 1
	}
	s.Duration = duration
}

// Finished reports whether Finish has been called
func (s *Span) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// ToMap returns the Zipkin v2 JSON representation of the span
func (s *Span) ToMap() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := map[string]interface{}{
		"traceId": s.Context.TraceID(),
		"id":      s.Context.SpanID(),
		"name":    strings.ToLower(s.Name),
	}

	if parentID := s.Context.ParentID(); parentID != "" {
		m["parentId"] = parentID
	}
	if s.Kind != KindUnspecified {
		m["kind"] = string(s.Kind)
	}
	if s.Timestamp > 0 {
		m["timestamp"] = s.Timestamp
	}
	if s.Duration > 0 {
		m["duration"] = s.Duration
	}
	if s.Context.Debug() {
		m["debug"] = true
	}
	if s.Shared {
		m["shared"] = true
	}
	if s.LocalEndpoint != nil {
		m["localEndpoint"] = s.LocalEndpoint.toMap()
	}
	if s.RemoteEndpoint != nil {
		m["remoteEndpoint"] = s.RemoteEndpoint.toMap()
	}

	if len(s.Annotations) > 0 {
		annotations := make([]map[string]interface{}, len(s.Annotations))
		for i, a := range s.Annotations {
			annotations[i] = map[string]interface{}{
				"timestamp": a.Timestamp,
				"value":     a.Value,
			}
		}
		m["annotations"] = annotations
	}

	if len(s.Tags) > 0 {
		tags := make(map[string]string, len(s.Tags))
		for k, v := range s.Tags {
			tags[k] = v
		}
		m["tags"] = tags
	}

	return m
}
