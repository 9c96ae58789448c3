package tracing

import (
	"context"
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// HTTPMiddleware creates Gin middleware for HTTP tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract trace context from headers
		opts := tracer.serverSpanOptions(HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// Start span
		span, ctx := tracer.StartSpan(c.Request.Context(), c.Request.Method+" "+route, opts...)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		span.SetTag("http.host", c.Request.Host)
		span.SetRemoteEndpoint(endpointFromIP(c.ClientIP(), 0))

		// Update request context
		c.Request = c.Request.WithContext(ctx)

		// Expose ids to the caller
		c.Header(HeaderTraceID, span.Context.TraceID())
		c.Header(HeaderSpanID, span.Context.SpanID())

		// Process request
		c.Next()

		// Record response
		code := c.Writer.Status()
		span.SetTag("http.status_code", strconv.Itoa(code))

		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		} else if code >= 500 {
			span.SetTag("error", strconv.Itoa(code))
		}

		span.Finish()
		tracer.Submit(span)
	}
}

// GRPCUnaryInterceptor creates a gRPC unary interceptor for tracing
func GRPCUnaryInterceptor(tracer *Tracer) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		span, ctx := tracer.startServerRPCSpan(ctx, info.FullMethod)

		// Process request
		resp, err := handler(ctx, req)

		finishRPCSpan(span, err)
		tracer.Submit(span)

		return resp, err
	}
}

// GRPCStreamInterceptor creates a gRPC stream interceptor for tracing
func GRPCStreamInterceptor(tracer *Tracer) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		span, ctx := tracer.startServerRPCSpan(ss.Context(), info.FullMethod)
		span.SetTag("rpc.streaming", "true")

		// Wrap stream with traced context
		wrapped := &tracedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		}

		// Process stream
		err := handler(srv, wrapped)

		finishRPCSpan(span, err)
		tracer.Submit(span)

		return err
	}
}

// tracedServerStream wraps grpc.ServerStream with tracing context
type tracedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedServerStream) Context() context.Context {
	return s.ctx
}

// GRPCClientInterceptor creates a gRPC client interceptor for trace propagation
func GRPCClientInterceptor(tracer *Tracer) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		// Start client span
		span, ctx := tracer.StartSpan(ctx, method, WithKind(KindClient))
		span.SetTag("rpc.system", "grpc")
		span.SetTag("rpc.method", method)

		// Inject trace context into metadata
		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.MD{}
		}
		Inject(span.Context, MetadataCarrier(md))
		ctx = metadata.NewOutgoingContext(ctx, md)

		// Call remote service
		err := invoker(ctx, method, req, reply, cc, opts...)

		finishRPCSpan(span, err)
		tracer.Submit(span)

		return err
	}
}

// serverSpanOptions turns propagated fields into StartSpan options.
// Malformed headers start a fresh trace.
func (t *Tracer) serverSpanOptions(c Carrier) []SpanOption {
	opts := []SpanOption{WithKind(KindServer)}

	ext, err := Extract(c)
	if err != nil {
		t.logger.Debug("ignoring malformed trace headers", zap.Error(err))
		return opts
	}

	if ext.HasContext() {
		opts = append(opts, WithParent(ext.Context))
	} else if !ext.Flags.IsEmpty() {
		opts = append(opts, WithSamplingFlags(ext.Flags))
	}
	return opts
}

func (t *Tracer) startServerRPCSpan(ctx context.Context, method string) (*Span, context.Context) {
	var opts []SpanOption
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		opts = t.serverSpanOptions(MetadataCarrier(md))
	} else {
		opts = []SpanOption{WithKind(KindServer)}
	}

	span, ctx := t.StartSpan(ctx, method, opts...)
	span.SetTag("rpc.system", "grpc")
	span.SetTag("rpc.method", method)

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, port, err := net.SplitHostPort(p.Addr.String()); err == nil {
			n, _ := strconv.Atoi(port)
			span.SetRemoteEndpoint(endpointFromIP(host, n))
		}
	}

	return span, ctx
}

func finishRPCSpan(span *Span, err error) {
	st, _ := status.FromError(err)
	span.SetTag("rpc.grpc.status_code", st.Code().String())
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
}

// endpointFromIP builds a remote endpoint, or nil when ip is not an address
func endpointFromIP(ip string, port int) *Endpoint {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}
	if v4 := parsed.To4(); v4 != nil {
		return &Endpoint{IPv4: v4.String(), Port: port}
	}
	return &Endpoint{IPv6: parsed.String(), Port: port}
}
