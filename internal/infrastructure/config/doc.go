// Package config provides 12-factor configuration management for the
// tracing demo service.
//
// Configuration is loaded from environment variables with sensible defaults.
// A YAML or TOML file can be overlaid on top with LoadFile; values set in the
// file win over the environment.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, service name, CORS)
//   - Reporter: Zipkin collector delivery (endpoint, timeout, compression)
//   - Tracer: Sampling defaults and span batching
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	rep, err := reporter.NewHTTP(nil, cfg.ReporterOptions(), logger)
//
// Environment Variables:
//   - PORT, HOST, SERVICE_NAME, CORS_ORIGINS
//   - ZIPKIN_ENDPOINT, ZIPKIN_TIMEOUT, ZIPKIN_COMPRESSION, ZIPKIN_MAX_RETRIES,
//     ZIPKIN_RATE_LIMIT, ZIPKIN_USER_AGENT, ZIPKIN_HEADERS
//   - TRACE_SAMPLED, TRACE_DEBUG, TRACE_ID_128, TRACE_BUFFER_SIZE,
//     TRACE_BATCH_SIZE, TRACE_FLUSH_INTERVAL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
