package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// StudentHandler exposes student profile endpoints.
type StudentHandler struct {
	students *service.StudentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param batch query string false "Filter by batch"
// @Param branch query string false "Filter by branch"
// @Param course query string false "Filter by course"
// @Param enrollment_year query int false "Filter by enrollment year"
// @Param active query bool false "Filter by active state"
// @Param search query string false "Search by name or roll number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Batch = c.Query("batch")
	filter.Branch = c.Query("branch")
	if course := c.Query("course"); course != "" {
		v := models.Course(course)
		filter.Course = &v
	}
	if year, err := strconv.Atoi(c.Query("enrollment_year")); err == nil {
		filter.EnrollmentYear = &year
	}
	filter.Active = boolQuery(c, "active")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Me godoc
// @Summary Get the caller's own student profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	student, err := h.students.GetOwn(c.Request.Context(), callerIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update a student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Deactivate godoc
// @Summary Deactivate a student profile and its account
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /students/{id} [delete]
func (h *StudentHandler) Deactivate(c *gin.Context) {
	if err := h.students.Deactivate(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportRoster godoc
// @Summary Import a student roster from CSV
// @Description One account is registered per row; row failures are reported per line.
// @Tags Students
// @Accept mpfd
// @Produce json
// @Param file formData file true "Roster CSV"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/import [post]
func (h *StudentHandler) ImportRoster(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing roster file"))
		return
	}
	defer file.Close() //nolint:errcheck

	outcomes, err := h.students.ImportRoster(c.Request.Context(), callerIdentity(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// ExportRoster godoc
// @Summary Export the filtered roster as CSV
// @Tags Students
// @Produce text/csv
// @Param batch query string false "Filter by batch"
// @Param branch query string false "Filter by branch"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/export [get]
func (h *StudentHandler) ExportRoster(c *gin.Context) {
	var filter models.StudentFilter
	filter.Batch = c.Query("batch")
	filter.Branch = c.Query("branch")
	filter.Active = boolQuery(c, "active")

	data, err := h.students.ExportRoster(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="roster.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// RosterTemplate godoc
// @Summary Download the roster import template
// @Tags Students
// @Produce text/csv
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/import/template [get]
func (h *StudentHandler) RosterTemplate(c *gin.Context) {
	data, err := h.students.RosterTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="roster_template.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
