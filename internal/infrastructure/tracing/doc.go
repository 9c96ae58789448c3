/*
Package tracing provides Zipkin-compatible trace identity and span recording.

# Overview

A TraceContext is the immutable identity of one span: trace id, span id,
optional parent id, a tri-state sampling decision, a debug flag and opaque
extras forwarded from parent to child. Contexts are plain values and safe
to share between goroutines; "changing" one returns a copy.

Spans are recorded by a Tracer, which buffers finished spans and hands
them to a reporter.Reporter in batches from a single collector goroutine.

# Features

- Root and child context creation with 64- or 128-bit trace ids
- Identifier validation on reconstruction (ErrInvalidIdentifier)
- B3 multi-header and single-header propagation
- HTTP and gRPC middleware for automatic instrumentation
- Buffered, batched span delivery with drop accounting

# Usage

	// Create tracer
	rep, _ := reporter.NewHTTP(nil, reporter.Options{
		reporter.OptionEndpointURL: "http://zipkin:9411/api/v2/spans",
	}, logger)
	tracer := tracing.New("checkout", logger, rep)
	defer tracer.Close(context.Background())

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// gRPC server interceptor
	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)),
		grpc.StreamInterceptor(tracing.GRPCStreamInterceptor(tracer)),
	)

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "charge card", tracing.WithKind(tracing.KindClient))
	defer tracer.Submit(span)

	span.SetTag("payment.provider", "stripe")

# Propagation

Extract prefers the single "b3" header and falls back to the X-B3-*
headers. Identifiers are lowercase hex: 16 characters for span and parent
ids, 16 or 32 for trace ids.
*/
package tracing
