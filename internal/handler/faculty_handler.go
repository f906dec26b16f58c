package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// FacultyHandler exposes faculty profile endpoints.
type FacultyHandler struct {
	faculty *service.FacultyService
}

// NewFacultyHandler constructs FacultyHandler.
func NewFacultyHandler(faculty *service.FacultyService) *FacultyHandler {
	return &FacultyHandler{faculty: faculty}
}

// List godoc
// @Summary List faculty
// @Tags Faculty
// @Produce json
// @Param department query string false "Filter by department"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	var filter models.FacultyFilter
	filter.Department = c.Query("department")
	filter.Search = c.Query("search")
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	faculty, pagination, err := h.faculty.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, pagination)
}

// Me godoc
// @Summary Get the caller's own faculty profile
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/me [get]
func (h *FacultyHandler) Me(c *gin.Context) {
	faculty, err := h.faculty.GetOwn(c.Request.Context(), callerIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// Get godoc
// @Summary Get faculty detail
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/{id} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	faculty, err := h.faculty.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}

// Update godoc
// @Summary Update a faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body service.UpdateFacultyRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /faculty/{id} [put]
func (h *FacultyHandler) Update(c *gin.Context) {
	var req service.UpdateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	faculty, err := h.faculty.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}
