package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// MaterialHandler exposes study material endpoints.
type MaterialHandler struct {
	materials *service.MaterialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// List godoc
// @Summary List study materials
// @Tags Materials
// @Produce json
// @Param subject_id query string false "Filter by subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	var filter models.StudyMaterialFilter
	filter.SubjectID = c.Query("subject_id")
	filter.Page, filter.PageSize = pageParams(c)

	materials, pagination, err := h.materials.List(c.Request.Context(), callerIdentity(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, pagination)
}

// Get godoc
// @Summary Get one study material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// Create godoc
// @Summary Upload study material for a subject and batch
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body service.CreateMaterialRequest true "Material payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	material, err := h.materials.Create(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// Update godoc
// @Summary Update study material
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body service.UpdateMaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	material, err := h.materials.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// Delete godoc
// @Summary Delete study material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Security BearerAuth
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
