package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// MarkHandler exposes internal mark endpoints.
type MarkHandler struct {
	marks *service.MarkService
}

// NewMarkHandler constructs MarkHandler.
func NewMarkHandler(marks *service.MarkService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Bulk godoc
// @Summary Record one test's scores for a class
// @Description Re-entering a score sheet replaces the previous values. Rows above the maximum are reported individually.
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.BulkMarkRequest true "Score sheet"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marks/bulk [post]
func (h *MarkHandler) Bulk(c *gin.Context) {
	var req service.BulkMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcomes, err := h.marks.BulkUpsert(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// List godoc
// @Summary List internal marks
// @Tags Marks
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param subject_id query string false "Filter by subject"
// @Param test_name query string false "Filter by test"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marks [get]
func (h *MarkHandler) List(c *gin.Context) {
	var filter models.InternalMarkFilter
	filter.StudentID = c.Query("student_id")
	filter.SubjectID = c.Query("subject_id")
	filter.TestName = c.Query("test_name")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	marks, pagination, err := h.marks.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, pagination)
}

type updateMarkRequest struct {
	ObtainedMark float64 `json:"obtained_mark"`
	Remarks      *string `json:"remarks"`
}

// Update godoc
// @Summary Rewrite one mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param id path string true "Mark ID"
// @Param payload body updateMarkRequest true "New score"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marks/{id} [put]
func (h *MarkHandler) Update(c *gin.Context) {
	var req updateMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mark, err := h.marks.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req.ObtainedMark, req.Remarks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete one mark
// @Tags Marks
// @Param id path string true "Mark ID"
// @Success 204
// @Security BearerAuth
// @Router /marks/{id} [delete]
func (h *MarkHandler) Delete(c *gin.Context) {
	if err := h.marks.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Download one subject's test scores as a PDF sheet
// @Tags Marks
// @Produce application/pdf
// @Param subject_id query string true "Subject ID"
// @Param test_name query string true "Test name"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /marks/report [get]
func (h *MarkHandler) Report(c *gin.Context) {
	subjectID := c.Query("subject_id")
	testName := c.Query("test_name")
	if subjectID == "" || testName == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_id and test_name are required"))
		return
	}

	pdf, err := h.marks.Report(c.Request.Context(), callerIdentity(c), subjectID, testName)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="marks_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
