package reporter

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Option keys recognised by the reporter and the default HTTP factory.
// Any other key is passed through to the transport factory unexamined.
const (
	OptionEndpointURL = "endpoint_url"
	OptionTimeout     = "timeout"
	OptionHeaders     = "headers"
	OptionCompression = "compression"
	OptionMaxRetries  = "max_retries"
	OptionRateLimit   = "rate_limit"
	OptionUserAgent   = "user_agent"
)

// DefaultEndpointURL is the Zipkin v2 HTTP collector convention
const DefaultEndpointURL = "http://localhost:9411/api/v2/spans"

// Options is the reporter configuration handed to the transport factory
type Options map[string]interface{}

// DefaultOptions returns the options every reporter starts from
func DefaultOptions() Options {
	return Options{
		OptionEndpointURL: DefaultEndpointURL,
	}
}

// Merge returns a new Options with overrides applied on top of o
func (o Options) Merge(overrides Options) Options {
	merged := make(Options, len(o)+len(overrides))
	for k, v := range o {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// EndpointURL returns the validated collector address
func (o Options) EndpointURL() (string, error) {
	endpoint, err := o.String(OptionEndpointURL, DefaultEndpointURL)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", OptionEndpointURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid %s %q: scheme must be http or https", OptionEndpointURL, endpoint)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid %s %q: missing host", OptionEndpointURL, endpoint)
	}

	return endpoint, nil
}

// String extracts a string option
func (o Options) String(key, defaultVal string) (string, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return defaultVal, nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be string, got %T", key, val)
	}
	return str, nil
}

// Duration extracts a duration option. Numbers are read as seconds,
// strings with time.ParseDuration.
func (o Options) Duration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return defaultVal, nil
	}

	var d time.Duration
	switch v := val.(type) {
	case time.Duration:
		d = v
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		d = parsed
	case int:
		d = time.Duration(v) * time.Second
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		return 0, fmt.Errorf("%s must be duration, got %T", key, val)
	}

	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return d, nil
}

// Int extracts a non-negative integer option
func (o Options) Int(key string, defaultVal int) (int, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return defaultVal, nil
	}

	var n int
	switch v := val.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%s must be number, got %T", key, val)
	}

	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return n, nil
}

// Float extracts a non-negative numeric option
func (o Options) Float(key string, defaultVal float64) (float64, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return defaultVal, nil
	}

	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return 0, fmt.Errorf("%s must be number, got %T", key, val)
	}

	if f < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return f, nil
}

// StringMap extracts a map of string values
func (o Options) StringMap(key string) (map[string]string, error) {
	val, ok := o[key]
	if !ok || val == nil {
		return nil, nil
	}

	switch v := val.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, raw := range v {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%s] must be string, got %T", key, k, raw)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be map of strings, got %T", key, val)
	}
}
