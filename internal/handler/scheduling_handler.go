package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/internal/service"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
	"github.com/noah-isme/coe-exam-api/pkg/response"
)

// SchedulingHandler handles the conflict check and commit endpoints.
type SchedulingHandler struct {
	conflicts  *service.ConflictService
	scheduling *service.SchedulingService
	alerts     *service.ExamAlertService
}

// NewSchedulingHandler constructs a scheduling handler.
func NewSchedulingHandler(conflicts *service.ConflictService, scheduling *service.SchedulingService, alerts *service.ExamAlertService) *SchedulingHandler {
	return &SchedulingHandler{conflicts: conflicts, scheduling: scheduling, alerts: alerts}
}

// Check godoc
// @Summary Pre-check a candidate exam assignment
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body service.CheckScheduleRequest true "Candidate assignment"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /scheduling/check [post]
func (h *SchedulingHandler) Check(c *gin.Context) {
	var req service.CheckScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	verdict, err := h.conflicts.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}

// Commit godoc
// @Summary Commit an exam assignment
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body service.ScheduleExamRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /scheduling/commit [post]
func (h *SchedulingHandler) Commit(c *gin.Context) {
	var req service.ScheduleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.AssignedBy == "" {
		req.AssignedBy = claims.UserID
	}

	// The date must fall inside an announced window before the
	// committer runs any conflict checks.
	if date, err := time.Parse(models.DateOnly, req.ExamDate); err == nil {
		if _, err := h.alerts.WindowForDate(c.Request.Context(), date); err != nil {
			response.Error(c, err)
			return
		}
	}

	result, err := h.scheduling.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
