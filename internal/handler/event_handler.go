package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// EventHandler exposes association events and the project showcase. Both
// listings are public.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, size := pageParams(c)
	events, pagination, err := h.events.ListEvents(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// GetEvent godoc
// @Summary Get one event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.events.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// CreateEvent godoc
// @Summary Publish an event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.EventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.events.CreateEvent(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.EventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.events.UpdateEvent(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.events.DeleteEvent(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListProjects godoc
// @Summary List showcased projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *EventHandler) ListProjects(c *gin.Context) {
	page, size := pageParams(c)
	projects, pagination, err := h.events.ListProjects(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// GetProject godoc
// @Summary Get one showcased project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *EventHandler) GetProject(c *gin.Context) {
	project, err := h.events.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// CreateProject godoc
// @Summary Showcase a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body service.ProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /projects [post]
func (h *EventHandler) CreateProject(c *gin.Context) {
	var req service.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.events.CreateProject(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// UpdateProject godoc
// @Summary Update a showcased project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.ProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id} [put]
func (h *EventHandler) UpdateProject(c *gin.Context) {
	var req service.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.events.UpdateProject(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// DeleteProject godoc
// @Summary Delete a showcased project
// @Tags Projects
// @Param id path string true "Project ID"
// @Success 204
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *EventHandler) DeleteProject(c *gin.Context) {
	if err := h.events.DeleteProject(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
