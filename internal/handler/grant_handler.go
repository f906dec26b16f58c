package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// GrantHandler exposes teaching grant endpoints. A grant authorizes one
// faculty member to record attendance and marks for a subject and batch.
type GrantHandler struct {
	grants *service.GrantService
}

// NewGrantHandler constructs GrantHandler.
func NewGrantHandler(grants *service.GrantService) *GrantHandler {
	return &GrantHandler{grants: grants}
}

// List godoc
// @Summary List teaching grants
// @Tags Grants
// @Produce json
// @Param faculty_id query string false "Filter by faculty"
// @Param subject_id query string false "Filter by subject"
// @Param batch query string false "Filter by batch"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grants [get]
func (h *GrantHandler) List(c *gin.Context) {
	var filter models.FacultySubjectFilter
	filter.FacultyID = c.Query("faculty_id")
	filter.SubjectID = c.Query("subject_id")
	filter.Batch = c.Query("batch")
	filter.Page, filter.PageSize = pageParams(c)

	grants, pagination, err := h.grants.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, pagination)
}

// Create godoc
// @Summary Create a teaching grant
// @Tags Grants
// @Accept json
// @Produce json
// @Param payload body service.CreateGrantRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /grants [post]
func (h *GrantHandler) Create(c *gin.Context) {
	var req service.CreateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.Create(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// Delete godoc
// @Summary Revoke a teaching grant
// @Tags Grants
// @Param id path string true "Grant ID"
// @Success 204
// @Security BearerAuth
// @Router /grants/{id} [delete]
func (h *GrantHandler) Delete(c *gin.Context) {
	if err := h.grants.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
