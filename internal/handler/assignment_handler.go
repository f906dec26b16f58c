package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// AssignmentHandler exposes assignment and submission endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param subject_id query string false "Filter by subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	filter.SubjectID = c.Query("subject_id")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	assignments, pagination, err := h.assignments.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// Get godoc
// @Summary Get one assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Publish an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update godoc
// @Summary Update an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.UpdateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req service.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.assignments.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit an answer to an assignment
// @Description Resubmitting before review replaces the previous upload. Late submissions are accepted.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.SubmitAssignmentRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	var req service.SubmitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.assignments.Submit(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// ListSubmissions godoc
// @Summary List submissions
// @Tags Assignments
// @Produce json
// @Param assignment_id query string false "Filter by assignment"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	var filter models.SubmissionFilter
	filter.AssignmentID = c.Query("assignment_id")
	if status := c.Query("status"); status != "" {
		v := models.SubmissionStatus(status)
		filter.Status = &v
	}
	filter.Page, filter.PageSize = pageParams(c)

	submissions, pagination, err := h.assignments.ListSubmissions(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, pagination)
}

// ReviewSubmission godoc
// @Summary Record a verdict on a submission
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.ReviewSubmissionRequest true "Verdict"
// @Success 204
// @Security BearerAuth
// @Router /assignments/submissions/{id}/review [put]
func (h *AssignmentHandler) ReviewSubmission(c *gin.Context) {
	var req service.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.ReviewSubmission(c.Request.Context(), callerIdentity(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteSubmission godoc
// @Summary Delete an owned submission
// @Tags Assignments
// @Param id path string true "Submission ID"
// @Success 204
// @Security BearerAuth
// @Router /assignments/submissions/{id} [delete]
func (h *AssignmentHandler) DeleteSubmission(c *gin.Context) {
	if err := h.assignments.DeleteSubmission(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
