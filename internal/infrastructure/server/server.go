package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/zipkin-core/internal/api/http"
	"github.com/GriffinCanCode/zipkin-core/internal/api/middleware"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/config"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/logging"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/zipkin-core/internal/reporter"
	"github.com/GriffinCanCode/zipkin-core/internal/shared/id"
)

// Server wraps the HTTP server and its tracing dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	tracer     *tracing.Tracer
	reporter   *reporter.HTTP
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// Option customises server construction
type Option func(*options)

type options struct {
	logger  *logging.Logger
	factory reporter.TransportFactory
}

// WithLogger replaces the logger built from the logging config
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransportFactory replaces the default HTTP transport factory
func WithTransportFactory(factory reporter.TransportFactory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			Service:     cfg.Server.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	instance := id.InstanceID()
	logger.Info("Initializing tracing demo server",
		zap.String("instance_id", instance),
		zap.String("port", cfg.Server.Port),
		zap.String("zipkin_endpoint", cfg.Reporter.EndpointURL),
	)

	// Initialize metrics first (needed by other components)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	// Span delivery
	rep, err := reporter.NewHTTP(o.factory, cfg.ReporterOptions(), logger.Named("reporter"), reporter.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	tracerOpts, err := cfg.Tracer.Options()
	if err != nil {
		return nil, fmt.Errorf("invalid tracer config: %w", err)
	}
	tracerOpts = append(tracerOpts,
		tracing.WithMetrics(metrics),
		tracing.WithLocalEndpoint(localEndpoint(cfg)),
	)
	tracer := tracing.New(cfg.Server.ServiceName, logger.Named("tracer").Logger, rep, tracerOpts...)
	logger.Info("Distributed tracing initialized")

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limitCfg.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limitCfg))
	}

	// Register routes
	handlers := apihttp.NewHandlers(tracer, metrics, logger, cfg.Reporter.EndpointURL, instance)
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)
	router.GET("/trace", handlers.Trace)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracer:   tracer,
		reporter: rep,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tracer returns the server's tracer
func (s *Server) Tracer() *tracing.Tracer {
	return s.tracer
}

// Run starts the HTTP server and blocks until it stops. A server stopped
// through Close returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops accepting requests, then flushes buffered spans to the
// collector before ctx expires.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}

	if err := s.tracer.Close(ctx); err != nil {
		s.logger.Error("Failed to flush spans", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to flush spans: %w", err))
	} else {
		s.logger.Info("Flushed pending spans")
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}

func localEndpoint(cfg *config.Config) *tracing.Endpoint {
	ep := &tracing.Endpoint{ServiceName: cfg.Server.ServiceName}
	if ip := net.ParseIP(cfg.Server.Host); ip != nil && !ip.IsUnspecified() {
		if ip4 := ip.To4(); ip4 != nil {
			ep.IPv4 = ip4.String()
		} else {
			ep.IPv6 = ip.String()
		}
	}
	return ep
}
