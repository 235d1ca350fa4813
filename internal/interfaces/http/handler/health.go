package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parcelreview/backend/internal/infrastructure/persistence"
	"github.com/parcelreview/backend/internal/interfaces/http/dto"
)

// DatabaseChecker reports database reachability
type DatabaseChecker interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	db      DatabaseChecker
	version string
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db DatabaseChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, timeout: 2 * time.Second}
}

// Live godoc
// @ID       getHealth
// @Summary  Liveness check
// @Tags     system
// @Produce  json
// @Success  200 {object} dto.HealthResponse
// @Router   /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Version: h.version})
}

// Ready godoc
// @ID       getHealthReady
// @Summary  Readiness check, pings the database
// @Tags     system
// @Produce  json
// @Success  200 {object} dto.HealthResponse
// @Failure  503 {object} dto.HealthResponse
// @Router   /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "ok", Version: h.version, Checks: map[string]string{"database": "ok"}}
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Checks["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if stats, err := h.db.Stats(); err == nil {
		resp.Database = stats
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes mounts the health checks under rg
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Live)
	rg.GET("/health/ready", h.Ready)
}
