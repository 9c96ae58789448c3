/*
Package monitoring provides Prometheus metrics for span reporting.

# Overview

This package tracks how the reporter and tracer are doing: how many report
calls succeeded or failed (and why), how many spans were sent or dropped,
payload sizes and report latency. It also records HTTP request metrics for
the demo service.

# Features

- Report outcomes by result (sent, encode_error, build_error, send_error, panic)
- Span counts per outcome and dropped spans per reason
- Payload size and report latency histograms
- HTTP request metrics via Gin middleware
- Nil-safe recording methods so metrics stay optional

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time a report call
	timer := monitoring.NewTimer(metrics)
	// ... encode and send ...
	timer.Stop(monitoring.ResultSent, len(spans), len(payload))

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
