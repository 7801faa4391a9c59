package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, actor policy.Actor, req dto.MarkAttendanceRequest) (*models.Attendance, bool, error)
	Report(ctx context.Context, actor policy.Actor, courseID string) (*dto.AttendanceReport, error)
	ExportReport(ctx context.Context, actor policy.Actor, courseID string, format export.Format) (*export.File, error)
	StudentAttendance(ctx context.Context, actor policy.Actor, courseID, studentID string) ([]models.AttendanceDetail, error)
}

// AttendanceHandler exposes lecture attendance endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance
// @Description Records the caller at a lecture. Repeated calls return the existing record with 200.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	attendance, created, err := h.service.Mark(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, attendance)
		return
	}
	response.JSON(c, http.StatusOK, attendance, nil)
}

// Report godoc
// @Summary Course attendance report
// @Description Pass format=csv or format=pdf to download.
// @Tags Attendance
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param format query string false "Export format (csv, pdf)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/course/{courseId}/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	format, requested, ok := exportFormat(c)
	if !ok {
		return
	}
	if requested {
		file, err := h.service.ExportReport(c.Request.Context(), actor, c.Param("courseId"), format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.File(c, file.Name, file.ContentType, file.Payload)
		return
	}

	report, err := h.service.Report(c.Request.Context(), actor, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentAttendance lists one student's attendance in a course.
func (h *AttendanceHandler) StudentAttendance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	items, err := h.service.StudentAttendance(c.Request.Context(), actor, c.Param("courseId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
