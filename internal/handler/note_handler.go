package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/models"
	"github.com/eesa/eesa-api/internal/service"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/response"
)

// NoteHandler exposes the shared note library. The approved listing is
// public; everything else requires authentication.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List godoc
// @Summary List notes under the caller's visibility rule
// @Description Anonymous callers see approved notes. Students additionally see their own notes of any status. Faculty and admins see everything.
// @Tags Notes
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by title or subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	var status *models.NoteStatus
	if raw := c.Query("status"); raw != "" {
		v := models.NoteStatus(raw)
		status = &v
	}
	page, size := pageParams(c)

	notes, pagination, err := h.notes.List(c.Request.Context(), callerIdentity(c), status, c.Query("search"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, pagination)
}

// Get godoc
// @Summary Get one note if the caller may see it
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), callerIdentity(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Create godoc
// @Summary Share a note
// @Description New notes start pending and enter the review queue.
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Create(c.Request.Context(), callerIdentity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Update godoc
// @Summary Edit an owned note
// @Description Edits reset the note to pending for re-review.
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body service.UpdateNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Update(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Review godoc
// @Summary Record a review verdict on a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body service.ReviewNoteRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/{id}/review [put]
func (h *NoteHandler) Review(c *gin.Context) {
	var req service.ReviewNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Review(c.Request.Context(), callerIdentity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete an owned note
// @Tags Notes
// @Param id path string true "Note ID"
// @Success 204
// @Security BearerAuth
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), callerIdentity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
