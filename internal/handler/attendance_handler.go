package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Bulk godoc
// @Summary Record attendance for a whole class hour
// @Description Authorization failures reject the whole batch; row problems are reported per student. Replaying a batch updates the existing rows.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceRequest true "Attendance batch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcomes, err := h.attendance.BulkUpsert(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param subject_id query string false "Filter by subject"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param hour query int false "Filter by hour"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("student_id")
	filter.SubjectID = c.Query("subject_id")
	if from, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		filter.DateTo = &to
	}
	if hour, err := strconv.Atoi(c.Query("hour")); err == nil {
		filter.Hour = &hour
	}
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	records, pagination, err := h.attendance.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Per-subject attendance summary for one student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/summary/{id} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summaries, err := h.attendance.Summary(c.Request.Context(), callerIdentity(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

type updateAttendanceRequest struct {
	Present bool `json:"present"`
}

// Update godoc
// @Summary Rewrite one attendance record's present flag
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body updateAttendanceRequest true "Present flag"
// @Success 204
// @Security BearerAuth
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req.Present); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete one attendance record
// @Tags Attendance
// @Param id path string true "Record ID"
// @Success 204
// @Security BearerAuth
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
