package tracing

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestExtract_MultiHeader(t *testing.T) {
	carrier := MapCarrier{
		HeaderTraceID:      "463AC35C9F6413AD48485A3953BB6124",
		HeaderSpanID:       "a2fb4a1d1a96d312",
		HeaderParentSpanID: "0020000000000001",
		HeaderSampled:      "1",
	}

	ext, err := Extract(carrier)
	require.NoError(t, err)
	require.True(t, ext.HasContext())

	tc := ext.Context
	assert.Equal(t, "463ac35c9f6413ad48485a3953bb6124", tc.TraceID())
	assert.Equal(t, "a2fb4a1d1a96d312", tc.SpanID())
	assert.Equal(t, "0020000000000001", tc.ParentID())
	assert.Equal(t, SampledTrue, tc.Sampled())
	assert.False(t, tc.Debug())
}

func TestExtract_FlagsOnly(t *testing.T) {
	tests := []struct {
		name    string
		carrier MapCarrier
		sampled Sampled
		debug   bool
	}{
		{"nothing", MapCarrier{}, SampledUnknown, false},
		{"not sampled", MapCarrier{HeaderSampled: "0"}, SampledFalse, false},
		{"debug", MapCarrier{HeaderFlags: "1"}, SampledTrue, true},
		{"single deny", MapCarrier{HeaderSingle: "0"}, SampledFalse, false},
		{"single debug", MapCarrier{HeaderSingle: "d"}, SampledTrue, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Extract(tt.carrier)
			require.NoError(t, err)
			assert.False(t, ext.HasContext())
			assert.Equal(t, tt.sampled, ext.Flags.Sampled())
			assert.Equal(t, tt.debug, ext.Flags.Debug())
		})
	}

	ext, _ := Extract(MapCarrier{})
	assert.True(t, ext.IsEmpty())
}

func TestExtract_SingleHeader(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		traceID  string
		spanID   string
		parentID string
		sampled  Sampled
		debug    bool
	}{
		{
			name:    "ids only",
			value:   "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1",
			traceID: "80f198ee56343ba864fe8b2a57d3eff7",
			spanID:  "e457b5a2e4d86bd1",
		},
		{
			name:    "sampled",
			value:   "80f198ee56343ba8-e457b5a2e4d86bd1-1",
			traceID: "80f198ee56343ba8",
			spanID:  "e457b5a2e4d86bd1",
			sampled: SampledTrue,
		},
		{
			name:     "with parent",
			value:    "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-0-05e3ac9a4f6e3b90",
			traceID:  "80f198ee56343ba864fe8b2a57d3eff7",
			spanID:   "e457b5a2e4d86bd1",
			parentID: "05e3ac9a4f6e3b90",
			sampled:  SampledFalse,
		},
		{
			name:    "debug",
			value:   "80f198ee56343ba8-e457b5a2e4d86bd1-d",
			traceID: "80f198ee56343ba8",
			spanID:  "e457b5a2e4d86bd1",
			sampled: SampledTrue,
			debug:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Extract(MapCarrier{"B3": tt.value})
			require.NoError(t, err)
			require.True(t, ext.HasContext())

			assert.Equal(t, tt.traceID, ext.Context.TraceID())
			assert.Equal(t, tt.spanID, ext.Context.SpanID())
			assert.Equal(t, tt.parentID, ext.Context.ParentID())
			assert.Equal(t, tt.sampled, ext.Context.Sampled())
			assert.Equal(t, tt.debug, ext.Context.Debug())
		})
	}
}

func TestExtract_SinglePreferredOverMulti(t *testing.T) {
	ext, err := Extract(MapCarrier{
		HeaderSingle:  "80f198ee56343ba8-e457b5a2e4d86bd1-1",
		HeaderTraceID: "0000000000000001",
		HeaderSpanID:  "0000000000000002",
	})
	require.NoError(t, err)
	assert.Equal(t, "80f198ee56343ba8", ext.Context.TraceID())
}

func TestExtract_Malformed(t *testing.T) {
	tests := []struct {
		name       string
		carrier    MapCarrier
		identifier bool
	}{
		{"short trace id", MapCarrier{HeaderTraceID: "1234", HeaderSpanID: testSpanID}, true},
		{"missing span id", MapCarrier{HeaderTraceID: testTraceID}, true},
		{"missing trace id", MapCarrier{HeaderSpanID: testSpanID}, true},
		{"parent without ids", MapCarrier{HeaderParentSpanID: testParentID}, true},
		{"bad parent", MapCarrier{HeaderTraceID: testTraceID, HeaderSpanID: testSpanID, HeaderParentSpanID: "nothex!!nothex!!"}, true},
		{"bad sampled", MapCarrier{HeaderTraceID: testTraceID, HeaderSpanID: testSpanID, HeaderSampled: "maybe"}, false},
		{"single bad id", MapCarrier{HeaderSingle: "xyz-e457b5a2e4d86bd1"}, true},
		{"single empty parent", MapCarrier{HeaderSingle: "80f198ee56343ba8-e457b5a2e4d86bd1-1-"}, true},
		{"single bad state", MapCarrier{HeaderSingle: "80f198ee56343ba8-e457b5a2e4d86bd1-x"}, false},
		{"single too many parts", MapCarrier{HeaderSingle: "a-b-c-d-e"}, false},
		{"single bad flags only", MapCarrier{HeaderSingle: "yes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.carrier)
			require.Error(t, err)
			assert.Equal(t, tt.identifier, errors.Is(err, ErrInvalidIdentifier), "error: %v", err)
		})
	}
}

func TestInject_RoundTrip(t *testing.T) {
	root := CreateAsRoot(SampledFlags())
	child := CreateFromParent(root)

	carrier := MapCarrier{}
	Inject(child, carrier)

	assert.Equal(t, child.TraceID(), carrier[HeaderTraceID])
	assert.Equal(t, child.SpanID(), carrier[HeaderSpanID])
	assert.Equal(t, root.SpanID(), carrier[HeaderParentSpanID])
	assert.Equal(t, "1", carrier[HeaderSampled])
	assert.NotContains(t, carrier, HeaderFlags)

	ext, err := Extract(carrier)
	require.NoError(t, err)
	assert.Equal(t, child.TraceID(), ext.Context.TraceID())
	assert.Equal(t, child.SpanID(), ext.Context.SpanID())
	assert.Equal(t, child.ParentID(), ext.Context.ParentID())
	assert.Equal(t, child.Sampled(), ext.Context.Sampled())
}

func TestInject_Flags(t *testing.T) {
	undecided := MapCarrier{}
	Inject(CreateAsRoot(EmptySamplingFlags()), undecided)
	assert.NotContains(t, undecided, HeaderSampled)
	assert.NotContains(t, undecided, HeaderParentSpanID)

	denied := MapCarrier{}
	Inject(CreateAsRoot(NotSampledFlags()), denied)
	assert.Equal(t, "0", denied[HeaderSampled])

	debug := MapCarrier{}
	Inject(CreateAsRoot(DebugFlags()), debug)
	assert.Equal(t, "1", debug[HeaderFlags])
	assert.NotContains(t, debug, HeaderSampled)

	invalid := MapCarrier{}
	Inject(TraceContext{}, invalid)
	assert.Empty(t, invalid)
}

func TestFormatSingle(t *testing.T) {
	root, err := Create(testTraceID, testSpanID, "", SampledUnknown, false, nil)
	require.NoError(t, err)
	assert.Equal(t, testTraceID+"-"+testSpanID, FormatSingle(root))

	child, err := Create(testTraceID, testParentID, testSpanID, SampledUnknown, false, nil)
	require.NoError(t, err)
	assert.Equal(t, testTraceID+"-"+testParentID, FormatSingle(child), "parent requires a sampling state")
	assert.Equal(t, testTraceID+"-"+testParentID+"-1-"+testSpanID, FormatSingle(child.WithSampled(SampledTrue)))
	assert.Equal(t, testTraceID+"-"+testParentID+"-d-"+testSpanID, FormatSingle(child.WithDebug(true)))
}

func TestInjectSingle_RoundTrip(t *testing.T) {
	tc := CreateFromParent(CreateAsRoot(NotSampledFlags(), WithTraceID128()))

	carrier := MapCarrier{}
	InjectSingle(tc, carrier)

	ext, err := Extract(carrier)
	require.NoError(t, err)
	assert.Equal(t, tc.TraceID(), ext.Context.TraceID())
	assert.Equal(t, tc.SpanID(), ext.Context.SpanID())
	assert.Equal(t, tc.ParentID(), ext.Context.ParentID())
	assert.Equal(t, SampledFalse, ext.Context.Sampled())
}

func TestCarriers(t *testing.T) {
	tc := CreateAsRoot(SampledFlags())

	t.Run("http header", func(t *testing.T) {
		h := http.Header{}
		Inject(tc, HeaderCarrier(h))
		assert.Equal(t, tc.TraceID(), h.Get("x-b3-traceid"))

		ext, err := Extract(HeaderCarrier(h))
		require.NoError(t, err)
		assert.Equal(t, tc.SpanID(), ext.Context.SpanID())
	})

	t.Run("grpc metadata", func(t *testing.T) {
		md := metadata.MD{}
		Inject(tc, MetadataCarrier(md))
		assert.Equal(t, []string{tc.TraceID()}, md.Get("x-b3-traceid"))

		ext, err := Extract(MetadataCarrier(md))
		require.NoError(t, err)
		assert.Equal(t, tc.SpanID(), ext.Context.SpanID())
	})

	t.Run("map is case insensitive", func(t *testing.T) {
		c := MapCarrier{"x-b3-sampled": "1"}
		assert.Equal(t, "1", c.Get(HeaderSampled))
		assert.Empty(t, c.Get("missing"))
	})
}
