package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zentat/internal/detection"
	"github.com/GriffinCanCode/zentat/internal/dom"
	"github.com/GriffinCanCode/zentat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zentat/internal/rates"
	"github.com/GriffinCanCode/zentat/internal/session"
	"github.com/GriffinCanCode/zentat/internal/settings"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// Options configures the handlers.
type Options struct {
	Unit        string
	RatesMaxAge time.Duration
	Sources     []rates.Source
}

// Handlers serves the conversion API
type Handlers struct {
	rates    *rates.Store
	settings *settings.Store
	sessions *session.Manager
	parser   *detection.Parser
	opts     Options
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(rs *rates.Store, ss *settings.Store, sessions *session.Manager, opts Options, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RatesMaxAge <= 0 {
		opts.RatesMaxAge = rates.DefaultMaxAge
	}
	return &Handlers{
		rates:    rs,
		settings: ss,
		sessions: sessions,
		parser:   detection.NewParser(detection.DefaultMatchers()...),
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Root handles basic health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "zentat",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	table := h.rates.Get()
	status := "healthy"
	stale := table.IsStale(time.Now(), h.opts.RatesMaxAge)
	if table.Empty() || stale {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"rates": gin.H{
			"source":     table.Source,
			"currencies": len(table.Rates),
			"updated_at": table.UpdatedAtMillis(),
			"stale":      stale,
		},
		"sessions": len(h.sessions.List()),
		"metrics":  h.metrics.Snapshot(),
	})
}

// MetricsJSON returns the metrics snapshot as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now(),
		"metrics":   h.metrics.Snapshot(),
	})
}

// abort maps an error to a status code and a JSON error body
func (h *Handlers) abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrInvalidOp), errors.Is(err, dom.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, dom.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dom.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, rates.ErrNoRates):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
