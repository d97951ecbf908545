package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coe-exam-api/internal/service"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
	"github.com/noah-isme/coe-exam-api/pkg/export"
	"github.com/noah-isme/coe-exam-api/pkg/response"
)

// TimetableHandler serves the consolidated timetable and its exports.
type TimetableHandler struct {
	timetable *service.TimetableService
	circular  *service.CircularService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(timetable *service.TimetableService, circular *service.CircularService) *TimetableHandler {
	return &TimetableHandler{
		timetable: timetable,
		circular:  circular,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// List godoc
// @Summary List the committed exam timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	exams, err := h.timetable.ListScheduled(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// Export godoc
// @Summary Export the timetable as CSV or PDF
// @Tags Timetable
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	dataset, err := h.timetable.BuildExportDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("exam-timetable-%s", time.Now().Format("20060102"))
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, err := h.csv.Render(*dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(*dataset, "Examination Timetable")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".pdf"))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
	}
}

// Circular godoc
// @Summary Generate the official examination circular PDF
// @Tags Timetable
// @Produce octet-stream
// @Param year query int true "Year of study"
// @Param semester query int true "Semester"
// @Success 200
// @Security BearerAuth
// @Router /timetable/circular [get]
func (h *TimetableHandler) Circular(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year is required"))
		return
	}
	semester, err := strconv.Atoi(c.Query("semester"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester is required"))
		return
	}

	payload, err := h.circular.Generate(c.Request.Context(), year, semester)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("exam-circular-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
