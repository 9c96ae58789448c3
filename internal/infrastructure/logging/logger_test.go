package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	dev, err := New(DevelopmentConfig())
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewWritesServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := New(Config{Level: "info", Service: "checkout", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("ready")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"checkout"`)
	assert.Contains(t, string(data), `"message":"ready"`)
}

func TestNewDefaultAndNop(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotPanics(t, func() {
		NewNop().Info("discarded")
	})
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	// No trace context, no fields
	logger.WithTrace(context.Background()).Info("plain")

	tc := tracing.CreateAsRoot(tracing.SampledFlags())
	ctx := tracing.NewContext(context.Background(), tc)
	logger.WithTrace(ctx).Named("handler").Info("traced")

	require.Equal(t, 2, logs.Len())
	assert.Empty(t, logs.All()[0].Context)

	traced := logs.All()[1]
	assert.Equal(t, "handler", traced.LoggerName)
	assert.Equal(t, tc.TraceID(), traced.ContextMap()["trace_id"])
	assert.Equal(t, tc.SpanID(), traced.ContextMap()["span_id"])
}
