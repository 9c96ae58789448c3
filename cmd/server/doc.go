// Package main runs the tracing demo service.
//
// Every request is traced: B3 headers from the caller are continued,
// otherwise a new trace is started. Finished spans are batched and posted to
// a Zipkin collector as JSON v2.
//
//	Client → demo service → Zipkin collector (/api/v2/spans)
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML or TOML file (-config), overriding the environment
//   - CLI flags, overriding both
//
// Usage:
//
//	./server -port 8000 -zipkin http://localhost:9411/api/v2/spans
//	./server -config deploy/demo.yaml -dev
//
// Signals:
//   - SIGINT, SIGTERM: stop accepting requests, flush buffered spans, exit
package main
