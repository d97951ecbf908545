package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/internal/service"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
	"github.com/noah-isme/coe-exam-api/pkg/response"
)

// ExamAlertHandler handles exam window endpoints.
type ExamAlertHandler struct {
	service *service.ExamAlertService
}

// NewExamAlertHandler constructs an exam alert handler.
func NewExamAlertHandler(svc *service.ExamAlertService) *ExamAlertHandler {
	return &ExamAlertHandler{service: svc}
}

// List godoc
// @Summary List exam alert windows
// @Tags ExamAlerts
// @Produce json
// @Param year query int false "Filter by year of study"
// @Param semester query int false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exam-alerts [get]
func (h *ExamAlertHandler) List(c *gin.Context) {
	var filter models.ExamAlertFilter
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	alerts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination)
}

// Get godoc
// @Summary Get exam alert by id
// @Tags ExamAlerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Router /exam-alerts/{id} [get]
func (h *ExamAlertHandler) Get(c *gin.Context) {
	alert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Create godoc
// @Summary Open an exam window
// @Tags ExamAlerts
// @Accept json
// @Produce json
// @Param payload body service.CreateExamAlertRequest true "Alert payload"
// @Success 201 {object} response.Envelope
// @Router /exam-alerts [post]
func (h *ExamAlertHandler) Create(c *gin.Context) {
	var req service.CreateExamAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatedBy = claims.UserID
	}
	alert, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// Update godoc
// @Summary Update an exam window
// @Tags ExamAlerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body service.UpdateExamAlertRequest true "Alert payload"
// @Success 200 {object} response.Envelope
// @Router /exam-alerts/{id} [put]
func (h *ExamAlertHandler) Update(c *gin.Context) {
	var req service.UpdateExamAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	alert, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Delete godoc
// @Summary Delete an exam window
// @Tags ExamAlerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 204
// @Router /exam-alerts/{id} [delete]
func (h *ExamAlertHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableDates godoc
// @Summary List schedulable dates of an exam window
// @Tags ExamAlerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Router /exam-alerts/{id}/available-dates [get]
func (h *ExamAlertHandler) AvailableDates(c *gin.Context) {
	alert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"alert_id": alert.ID,
		"dates":    service.AvailableDates(alert),
		"slots":    service.TimeSlots(),
	}, nil)
}

// Active godoc
// @Summary Exam window covering a date
// @Tags ExamAlerts
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /exam-alerts/active [get]
func (h *ExamAlertHandler) Active(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(models.DateOnly, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
			return
		}
		date = parsed
	}
	alert, err := h.service.WindowForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}
