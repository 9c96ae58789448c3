/*
Package reporter delivers finished spans to a Zipkin collector.

# Overview

Report is best effort and synchronous. A batch is mapped record by record,
encoded as one JSON array, and handed to a transport obtained from the
configured TransportFactory. Encoding, build and send failures are logged
once to the reporter's Logger and dropped. Nothing is retried or queued
here; callers that want asynchronous delivery wrap the reporter (see the
tracing package's Tracer).

# Usage

	r, err := reporter.NewHTTP(nil, reporter.Options{
		reporter.OptionEndpointURL: "http://zipkin:9411/api/v2/spans",
		reporter.OptionCompression: reporter.CompressionGzip,
	}, logger)
	if err != nil {
		return err
	}

	r.Report(ctx, []reporter.Record{span})

# Transports

HTTPFactory is the default factory. It builds a resty client over a
retryablehttp round tripper, guarded by a circuit breaker and an optional
rate limiter, and caches one transport per distinct option set. Any other
factory can be supplied with FactoryFunc.
*/
package reporter
