package tracing

import (
	"fmt"
	"strings"
)

// Sampled is a tri-state sampling decision. The zero value is
// SampledUnknown: no decision has been made and downstream participants
// may still decide.
type Sampled int8

const (
	SampledUnknown Sampled = iota
	SampledFalse
	SampledTrue
)

// SampledFromBool converts a definite decision
func SampledFromBool(sampled bool) Sampled {
	if sampled {
		return SampledTrue
	}
	return SampledFalse
}

// ParseSampled parses "", "true"/"false", "1"/"0" (case-insensitive)
func ParseSampled(value string) (Sampled, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SampledUnknown, nil
	case "1", "true":
		return SampledTrue, nil
	case "0", "false":
		return SampledFalse, nil
	default:
		return SampledUnknown, fmt.Errorf("invalid sampling decision: %q", value)
	}
}

// Bool returns the decision and whether one was made
func (s Sampled) Bool() (sampled bool, known bool) {
	switch s {
	case SampledTrue:
		return true, true
	case SampledFalse:
		return false, true
	default:
		return false, false
	}
}

// IsKnown reports whether a decision was made
func (s Sampled) IsKnown() bool {
	return s == SampledTrue || s == SampledFalse
}

// String returns the string representation of the decision
func (s Sampled) String() string {
	switch s {
	case SampledTrue:
		return "true"
	case SampledFalse:
		return "false"
	default:
		return "unknown"
	}
}

// SamplingFlags carries the sampling decision and debug flag of a trace.
// The two are stored and propagated independently; debug forces recording
// whatever the sampled value is.
type SamplingFlags struct {
	sampled Sampled
	debug   bool
}

// NewSamplingFlags creates flags from explicit values
func NewSamplingFlags(sampled Sampled, debug bool) SamplingFlags {
	return SamplingFlags{sampled: sampled, debug: debug}
}

// EmptySamplingFlags returns undecided, non-debug flags (the zero value)
func EmptySamplingFlags() SamplingFlags {
	return SamplingFlags{}
}

// SampledFlags returns flags for a trace that was sampled
func SampledFlags() SamplingFlags {
	return SamplingFlags{sampled: SampledTrue}
}

// NotSampledFlags returns flags for a trace that was not sampled
func NotSampledFlags() SamplingFlags {
	return SamplingFlags{sampled: SampledFalse}
}

// DebugFlags returns flags forcing the trace to be recorded
func DebugFlags() SamplingFlags {
	return SamplingFlags{sampled: SampledTrue, debug: true}
}

// Sampled returns the sampling decision
func (f SamplingFlags) Sampled() Sampled {
	return f.sampled
}

// Debug returns whether debug mode is on
func (f SamplingFlags) Debug() bool {
	return f.debug
}

// IsEmpty reports whether no decision and no debug flag is present
func (f SamplingFlags) IsEmpty() bool {
	return f.sampled == SampledUnknown && !f.debug
}

// IsRecorded reports whether spans carrying these flags should be kept
func (f SamplingFlags) IsRecorded() bool {
	return f.debug || f.sampled == SampledTrue
}
