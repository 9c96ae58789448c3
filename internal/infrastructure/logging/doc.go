// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Loggers can be bound to the active trace so log lines correlate with the
// spans delivered to Zipkin:
//
//	logger := logging.NewDefault()
//	logger.WithTrace(ctx).Info("order placed", zap.String("order_id", id))
//
// The embedded *zap.Logger satisfies reporter.Logger, so the same logger is
// handed to the span reporter.
package logging
