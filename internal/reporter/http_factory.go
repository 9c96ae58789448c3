package reporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

// Payload encodings accepted by the compression option
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "zipkin-core/1.0"
	retryWaitMin     = 100 * time.Millisecond
	retryWaitMax     = 2 * time.Second
	maxErrorBody     = 256
)

// httpSettings is the parsed form of the options an HTTPFactory understands
type httpSettings struct {
	endpoint    string
	timeout     time.Duration
	headers     map[string]string
	compression string
	maxRetries  int
	rateLimit   float64
	userAgent   string
}

func parseHTTPSettings(options Options) (httpSettings, error) {
	var s httpSettings
	var err error

	if s.endpoint, err = options.EndpointURL(); err != nil {
		return s, err
	}
	if s.timeout, err = options.Duration(OptionTimeout, defaultTimeout); err != nil {
		return s, err
	}
	if s.headers, err = options.StringMap(OptionHeaders); err != nil {
		return s, err
	}
	if s.compression, err = options.String(OptionCompression, CompressionNone); err != nil {
		return s, err
	}
	if s.compression == "" {
		s.compression = CompressionNone
	}
	switch s.compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return s, fmt.Errorf("unsupported %s %q", OptionCompression, s.compression)
	}
	if s.maxRetries, err = options.Int(OptionMaxRetries, 0); err != nil {
		return s, err
	}
	if s.rateLimit, err = options.Float(OptionRateLimit, 0); err != nil {
		return s, err
	}
	if s.userAgent, err = options.String(OptionUserAgent, defaultUserAgent); err != nil {
		return s, err
	}

	return s, nil
}

func validateHTTPOptions(options Options) error {
	if _, err := parseHTTPSettings(options); err != nil {
		return fmt.Errorf("invalid transport options: %w", err)
	}
	return nil
}

// key identifies a settings combination for client caching
func (s httpSettings) key() string {
	names := make([]string, 0, len(s.headers))
	for name := range s.headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d|%g|%s", s.endpoint, s.timeout, s.compression, s.maxRetries, s.rateLimit, s.userAgent)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%s", name, s.headers[name])
	}
	return b.String()
}

// StatusError is a non-2xx collector response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector returned status %d: %s", e.Code, e.Body)
}

// isCollectorFailure counts errors that say the collector is unhealthy.
// A rejected payload or the caller's own cancellation does not.
func isCollectorFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500 || status.Code == http.StatusRequestTimeout || status.Code == http.StatusTooManyRequests
	}
	return true
}

// HTTPFactory builds collector transports backed by resty and caches one
// per distinct option set, so connection pools and breaker state survive
// across report calls.
type HTTPFactory struct {
	mu         sync.Mutex
	transports map[string]*HTTPTransport
	breaker    resilience.Settings
}

// NewHTTPFactory creates a factory. breaker optionally overrides the
// circuit breaker settings of every transport it builds.
func NewHTTPFactory(breaker ...resilience.Settings) *HTTPFactory {
	f := &HTTPFactory{
		transports: make(map[string]*HTTPTransport),
	}
	if len(breaker) > 0 {
		f.breaker = breaker[0]
	}
	return f
}

// Validate reports whether options can produce a transport
func (f *HTTPFactory) Validate(options Options) error {
	_, err := parseHTTPSettings(options)
	return err
}

// Build returns the cached transport for options, creating it on first use
func (f *HTTPFactory) Build(options Options) (Transport, error) {
	settings, err := parseHTTPSettings(options)
	if err != nil {
		return nil, err
	}

	key := settings.key()

	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.transports[key]; ok {
		return t, nil
	}

	t, err := newHTTPTransport(settings, f.breaker)
	if err != nil {
		return nil, err
	}
	f.transports[key] = t
	return t, nil
}

// HTTPTransport posts payloads to one collector endpoint
type HTTPTransport struct {
	settings httpSettings
	client   *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	zstd     *zstd.Encoder
}

func newHTTPTransport(settings httpSettings, breakerSettings resilience.Settings) (*HTTPTransport, error) {
	// retryablehttp owns retries so resty sees one logical round trip
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = settings.maxRetries
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(settings.timeout).
		SetHeader("User-Agent", settings.userAgent).
		SetHeader("Content-Type", "application/json")
	if len(settings.headers) > 0 {
		client.SetHeaders(settings.headers)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if settings.rateLimit > 0 {
		burst := int(settings.rateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(settings.rateLimit), burst)
	}

	if breakerSettings.IsFailure == nil {
		breakerSettings.IsFailure = isCollectorFailure
	}

	t := &HTTPTransport{
		settings: settings,
		client:   client,
		limiter:  limiter,
		breaker:  resilience.New(settings.endpoint, breakerSettings),
	}

	if settings.compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		t.zstd = enc
	}

	return t, nil
}

// Breaker exposes the circuit breaker guarding this endpoint
func (t *HTTPTransport) Breaker() *resilience.Breaker {
	return t.breaker
}

// Send posts payload to the collector. Non-2xx responses are errors.
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	body, err := t.encode(payload)
	if err != nil {
		return err
	}

	err = t.breaker.Execute(func() error {
		req := t.client.R().
			SetContext(ctx).
			SetBody(body)
		if t.settings.compression != CompressionNone {
			req.SetHeader("Content-Encoding", t.settings.compression)
		}

		resp, err := req.Post(t.settings.endpoint)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if resp.IsError() {
			return &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), maxErrorBody)}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("post %s: %w", t.settings.endpoint, err)
	}
	return nil
}

func (t *HTTPTransport) encode(payload []byte) ([]byte, error) {
	switch t.settings.compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("gzip payload: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip payload: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return t.zstd.EncodeAll(payload, make([]byte, 0, len(payload))), nil
	default:
		return payload, nil
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
