package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	appreview "github.com/parcelreview/backend/internal/application/review"
	"github.com/parcelreview/backend/internal/infrastructure/scheduler"
	"github.com/parcelreview/backend/internal/interfaces/http/dto"
	"github.com/parcelreview/backend/internal/interfaces/http/middleware"
)

// InvitationRunner starts pipeline runs on demand
type InvitationRunner interface {
	RunNow(ctx context.Context, limit int) (*appreview.ProcessReport, error)
	Stats() scheduler.SchedulerStats
}

// ReviewInvitationHandler exposes manual pipeline runs
type ReviewInvitationHandler struct {
	BaseHandler
	runner       InvitationRunner
	defaultLimit int
	processGuard []gin.HandlerFunc
}

// ReviewInvitationOption configures a ReviewInvitationHandler
type ReviewInvitationOption func(*ReviewInvitationHandler)

// WithProcessMiddleware runs mw before manual runs only, e.g. a rate limit
func WithProcessMiddleware(mw ...gin.HandlerFunc) ReviewInvitationOption {
	return func(h *ReviewInvitationHandler) {
		h.processGuard = append(h.processGuard, mw...)
	}
}

// NewReviewInvitationHandler creates a handler. defaultLimit applies when the
// request body has no limit.
func NewReviewInvitationHandler(runner InvitationRunner, defaultLimit int, opts ...ReviewInvitationOption) *ReviewInvitationHandler {
	h := &ReviewInvitationHandler{runner: runner, defaultLimit: defaultLimit}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process godoc
// @ID           processReviewInvitations
// @Summary      Run the review invitation pipeline
// @Description  Processes up to limit pending invitations and returns the run report. 0 means no limit.
// @Tags         review-invitations
// @Accept       json
// @Produce      json
// @Param        request body dto.ProcessInvitationsRequest false "Run options"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      429 {object} dto.Response
// @Router       /review-invitations/process [post]
func (h *ReviewInvitationHandler) Process(c *gin.Context) {
	var req dto.ProcessInvitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		if details := middleware.ValidationDetails(err); details != nil {
			h.ValidationError(c, details)
			return
		}
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return
	}

	limit := h.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	// a client disconnect must not interrupt a run that already sent invitations
	report, err := h.runner.RunNow(context.WithoutCancel(c.Request.Context()), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// SchedulerStatus godoc
// @ID           getReviewInvitationSchedulerStatus
// @Summary      Scheduler counters and the last run report
// @Tags         review-invitations
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /review-invitations/scheduler [get]
func (h *ReviewInvitationHandler) SchedulerStatus(c *gin.Context) {
	h.Success(c, h.runner.Stats())
}

// RegisterRoutes mounts the handler under rg
func (h *ReviewInvitationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/review-invitations")
	process := append(append([]gin.HandlerFunc{}, h.processGuard...), h.Process)
	group.POST("/process", process...)
	group.GET("/scheduler", h.SchedulerStatus)
}
