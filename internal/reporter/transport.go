package reporter

import "context"

// Transport delivers one encoded payload to a collector
type Transport interface {
	Send(ctx context.Context, payload []byte) error
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, payload []byte) error

// Send calls f(ctx, payload)
func (f TransportFunc) Send(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

// TransportFactory builds a transport from reporter options. It is invoked
// once per report call; caching built transports is up to the factory.
type TransportFactory interface {
	Build(options Options) (Transport, error)
}

// FactoryFunc adapts a function to the TransportFactory interface
type FactoryFunc func(options Options) (Transport, error)

// Build calls f(options)
func (f FactoryFunc) Build(options Options) (Transport, error) {
	return f(options)
}

// validator is implemented by factories that can reject options up front
type validator interface {
	Validate(options Options) error
}
