package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/zipkin-core/internal/reporter"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Reporter  ReporterConfig  `yaml:"reporter" toml:"reporter"`
	Tracer    TracerConfig    `yaml:"tracer" toml:"tracer"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
	ServiceName string   `envconfig:"SERVICE_NAME" default:"zipkin-demo" yaml:"service_name" toml:"service_name"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*" yaml:"cors_origins" toml:"cors_origins"`
}

// ReporterConfig holds span delivery configuration.
type ReporterConfig struct {
	EndpointURL string            `envconfig:"ZIPKIN_ENDPOINT" default:"http://localhost:9411/api/v2/spans" yaml:"endpoint_url" toml:"endpoint_url"`
	Timeout     Duration          `envconfig:"ZIPKIN_TIMEOUT" default:"5s" yaml:"timeout" toml:"timeout"`
	Compression string            `envconfig:"ZIPKIN_COMPRESSION" default:"none" yaml:"compression" toml:"compression"`
	MaxRetries  int               `envconfig:"ZIPKIN_MAX_RETRIES" default:"0" yaml:"max_retries" toml:"max_retries"`
	RateLimit   float64           `envconfig:"ZIPKIN_RATE_LIMIT" default:"0" yaml:"rate_limit" toml:"rate_limit"`
	UserAgent   string            `envconfig:"ZIPKIN_USER_AGENT" yaml:"user_agent" toml:"user_agent"`
	Headers     map[string]string `envconfig:"ZIPKIN_HEADERS" yaml:"headers" toml:"headers"`
}

// TracerConfig holds span recording configuration.
type TracerConfig struct {
	Sampled       string   `envconfig:"TRACE_SAMPLED" yaml:"sampled" toml:"sampled"`
	Debug         bool     `envconfig:"TRACE_DEBUG" default:"false" yaml:"debug" toml:"debug"`
	TraceID128    bool     `envconfig:"TRACE_ID_128" default:"false" yaml:"trace_id_128" toml:"trace_id_128"`
	BufferSize    int      `envconfig:"TRACE_BUFFER_SIZE" default:"1000" yaml:"buffer_size" toml:"buffer_size"`
	BatchSize     int      `envconfig:"TRACE_BATCH_SIZE" default:"100" yaml:"batch_size" toml:"batch_size"`
	FlushInterval Duration `envconfig:"TRACE_FLUSH_INTERVAL" default:"1s" yaml:"flush_interval" toml:"flush_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration read from strings such as "250ms".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads configuration from the environment and then overlays the
// YAML or TOML file at path. Values present in the file win.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format %q", filepath.Ext(path))
	}

	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "0.0.0.0",
			ServiceName: "zipkin-demo",
			CORSOrigins: []string{"*"},
		},
		Reporter: ReporterConfig{
			EndpointURL: reporter.DefaultEndpointURL,
			Timeout:     Duration(5 * time.Second),
			Compression: reporter.CompressionNone,
		},
		Tracer: TracerConfig{
			BufferSize:    1000,
			BatchSize:     100,
			FlushInterval: Duration(time.Second),
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values that cannot be expressed through defaults.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if c.Server.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	if err := reporter.NewHTTPFactory().Validate(c.ReporterOptions()); err != nil {
		return fmt.Errorf("invalid reporter config: %w", err)
	}

	if _, err := c.Tracer.SamplingFlags(); err != nil {
		return fmt.Errorf("invalid tracer config: %w", err)
	}
	if c.Tracer.BufferSize <= 0 || c.Tracer.BatchSize <= 0 {
		return fmt.Errorf("tracer buffer and batch size must be positive")
	}
	if c.Tracer.FlushInterval <= 0 {
		return fmt.Errorf("tracer flush interval must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive rps and burst")
	}

	return nil
}

// ReporterOptions converts the reporter section to reporter options.
func (c *Config) ReporterOptions() reporter.Options {
	opts := reporter.Options{
		reporter.OptionEndpointURL: c.Reporter.EndpointURL,
		reporter.OptionTimeout:     c.Reporter.Timeout.Std(),
		reporter.OptionCompression: c.Reporter.Compression,
		reporter.OptionMaxRetries:  c.Reporter.MaxRetries,
		reporter.OptionRateLimit:   c.Reporter.RateLimit,
	}
	if c.Reporter.UserAgent != "" {
		opts[reporter.OptionUserAgent] = c.Reporter.UserAgent
	}
	if len(c.Reporter.Headers) > 0 {
		opts[reporter.OptionHeaders] = c.Reporter.Headers
	}
	return reporter.DefaultOptions().Merge(opts)
}

// SamplingFlags returns the flags new root spans start with.
func (c TracerConfig) SamplingFlags() (tracing.SamplingFlags, error) {
	sampled, err := tracing.ParseSampled(c.Sampled)
	if err != nil {
		return tracing.SamplingFlags{}, err
	}
	return tracing.NewSamplingFlags(sampled, c.Debug), nil
}

// Options converts the tracer section to tracer options.
func (c TracerConfig) Options() ([]tracing.Option, error) {
	flags, err := c.SamplingFlags()
	if err != nil {
		return nil, err
	}

	opts := []tracing.Option{
		tracing.WithDefaultSamplingFlags(flags),
		tracing.WithBufferSize(c.BufferSize),
		tracing.WithBatchSize(c.BatchSize),
		tracing.WithFlushInterval(c.FlushInterval.Std()),
	}
	if c.TraceID128 {
		opts = append(opts, tracing.WithTraceID128Roots())
	}
	return opts, nil
}
