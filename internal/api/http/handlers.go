package http

import (
	"net/http"

	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/logging"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zipkin-core/internal/infrastructure/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers contains the demo service's HTTP handlers
type Handlers struct {
	tracer   *tracing.Tracer
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	endpoint string
	instance string
}

// NewHandlers creates a new handlers instance
func NewHandlers(tracer *tracing.Tracer, metrics *monitoring.Metrics, logger *logging.Logger, endpoint, instance string) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		tracer:   tracer,
		metrics:  metrics,
		logger:   logger,
		endpoint: endpoint,
		instance: instance,
	}
}

// TraceResponse describes the trace context a request was served under
type TraceResponse struct {
	Service  string `json:"service"`
	TraceID  string `json:"trace_id"`
	SpanID   string `json:"span_id"`
	ParentID string `json:"parent_id,omitempty"`
	Sampled  string `json:"sampled"`
	Debug    bool   `json:"debug"`
	B3       string `json:"b3"`
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": h.tracer.Service(),
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  h.tracer.Service(),
		"instance": h.instance,
		"reporter": gin.H{"endpoint": h.endpoint},
	})
}

// Stats returns the current delivery counters
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, monitoring.MetricsSnapshot{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Trace echoes the trace context of the request and records a local child
// span underneath it
func (h *Handlers) Trace(c *gin.Context) {
	tc, ok := tracing.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request is not traced"})
		return
	}

	child, ctx := h.tracer.StartSpan(c.Request.Context(), "echo")
	child.SetTag("echo.client_ip", c.ClientIP())
	h.logger.WithTrace(ctx).Debug("echoing trace context", zap.String("parent_span_id", tc.SpanID()))
	child.Finish()
	h.tracer.Submit(child)

	c.JSON(http.StatusOK, TraceResponse{
		Service:  h.tracer.Service(),
		TraceID:  tc.TraceID(),
		SpanID:   tc.SpanID(),
		ParentID: tc.ParentID(),
		Sampled:  tc.Sampled().String(),
		Debug:    tc.Debug(),
		B3:       tracing.FormatSingle(tc),
	})
}
