package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/parcelreview/backend/internal/infrastructure/logger"
	"github.com/parcelreview/backend/internal/interfaces/http/middleware"
)

// maxBodyBytes caps request bodies, the only body is a small JSON object
const maxBodyBytes = 64 << 10

// EngineConfig controls the middleware chain of the trigger API
type EngineConfig struct {
	ServiceName      string
	Mode             string
	TracingEnabled   bool
	ProfilingEnabled bool
	TrustedProxies   []string
	Security         middleware.SecurityConfig
	// Meter enables HTTP metrics when set
	Meter metric.Meter
}

// NewEngine builds a gin engine with recovery, request logging, tracing,
// profiling labels and metrics installed in that order.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(log),
		middleware.SecureHeaders(cfg.Security),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		middleware.Profiling(cfg.ProfilingEnabled, middleware.DefaultProfilingSkipPaths),
		middleware.BodyLimit(maxBodyBytes),
	)

	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		engine.Use(metrics)
	}
	return engine, nil
}
