// Package server wires the tracing demo service together.
//
// Construction order:
//  1. Logger from the logging config
//  2. Prometheus registry and metrics
//  3. HTTP span reporter posting to the Zipkin collector
//  4. Tracer buffering spans for the reporter
//  5. Gin router with logging, tracing, metrics, CORS and rate limiting
//
// Close stops the HTTP server and then drains the tracer, so spans for
// in-flight requests still reach the collector.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Close(ctx)
package server
