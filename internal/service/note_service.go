package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type noteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	FindByID(ctx context.Context, id string) (*models.Note, error)
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error)
	Update(ctx context.Context, note *models.Note) error
	Review(ctx context.Context, id string, status models.NoteStatus, reviewerID string, comment *string) error
	Delete(ctx context.Context, id string) error
}

// CreateNoteRequest holds payload for sharing a note.
type CreateNoteRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	FilePath    string `json:"file_path" validate:"required"`
}

// UpdateNoteRequest holds payload for editing an owned note. Edits reset
// the note to pending so it is re-reviewed.
type UpdateNoteRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	FilePath    string `json:"file_path"`
}

// ReviewNoteRequest holds a reviewer verdict.
type ReviewNoteRequest struct {
	Status  models.NoteStatus `json:"status" validate:"required"`
	Comment *string           `json:"comment"`
}

const noteListTTL = 2 * time.Minute

// NoteService handles the shared note library: student uploads, faculty
// review, and the public approved listing.
type NoteService struct {
	repo      noteRepository
	cache     summaryCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoteService constructs the note service. cache may be nil.
func NewNoteService(repo noteRepository, cache summaryCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = noteListTTL
	}
	return &NoteService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

type cachedNoteList struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// List returns notes under the caller's visibility rule. The public
// approved listing (anonymous, no filters) is cached.
func (s *NoteService) List(ctx context.Context, caller access.Identity, status *models.NoteStatus, search string, page, pageSize int) ([]models.Note, *models.Pagination, error) {
	filter := access.NoteVisibility(caller, status)
	filter.Search = search
	filter.Page = page
	filter.PageSize = pageSize

	cacheable := !caller.Authenticated() && status == nil && search == "" && page <= 1
	const cacheKey = "notes:public:first"

	if cacheable && s.cache != nil {
		var cached cachedNoteList
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached.Notes, paginationFor(page, pageSize, cached.Total), nil
		}
	}

	notes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cachedNoteList{Notes: notes, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache note listing", zap.Error(err))
		}
	}
	return notes, paginationFor(page, pageSize, total), nil
}

// Get returns one note if the caller may see it.
func (s *NoteService) Get(ctx context.Context, caller access.Identity, id string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if !s.visible(caller, note) {
		// Hidden notes are indistinguishable from absent ones.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	return note, nil
}

func (s *NoteService) visible(caller access.Identity, note *models.Note) bool {
	if note.Status == models.NoteApproved {
		return true
	}
	if !caller.Authenticated() || !caller.Consistent() {
		return false
	}
	switch caller.Role {
	case models.RoleAdmin, models.RoleFaculty:
		return true
	case models.RoleStudent:
		return note.UploadedBy == caller.Profile.StudentID
	default:
		return false
	}
}

// Create shares a new note. It starts pending regardless of input.
func (s *NoteService) Create(ctx context.Context, caller access.Identity, req CreateNoteRequest) (*models.Note, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindNote}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	note := &models.Note{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		FilePath:    req.FilePath,
		UploadedBy:  caller.Profile.StudentID,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	s.invalidateListing(ctx)
	return note, nil
}

// Update edits an owned note and resets it to pending for re-review.
func (s *NoteService) Update(ctx context.Context, caller access.Identity, id string, req UpdateNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}

	if err := access.Authorize(caller, access.Request{
		Action: access.ActionUpdate,
		Kind:   access.KindNote,
		Owner:  access.Owner{StudentID: note.UploadedBy},
	}); err != nil {
		return nil, err
	}

	note.Title = req.Title
	note.Description = req.Description
	note.Subject = req.Subject
	if req.FilePath != "" {
		note.FilePath = req.FilePath
	}
	note.Status = models.NotePending

	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	s.invalidateListing(ctx)
	return note, nil
}

// Review records a verdict on a pending note. Approvals and rejections
// are both final until the owner edits the note again.
func (s *NoteService) Review(ctx context.Context, caller access.Identity, id string, req ReviewNoteRequest) (*models.Note, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionReview, Kind: access.KindNote}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Status != models.NoteApproved && req.Status != models.NoteRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "review status must be approved or rejected")
	}

	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}

	reviewerID := caller.UserID
	if err := s.repo.Review(ctx, id, req.Status, reviewerID, req.Comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review note")
	}

	note.Status = req.Status
	note.ReviewerID = &reviewerID
	note.ReviewComment = req.Comment
	s.invalidateListing(ctx)
	return note, nil
}

// Delete removes an owned note.
func (s *NoteService) Delete(ctx context.Context, caller access.Identity, id string) error {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionDelete,
		Kind:   access.KindNote,
		Owner:  access.Owner{StudentID: note.UploadedBy},
	}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	s.invalidateListing(ctx)
	return nil
}

func (s *NoteService) invalidateListing(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "notes:public:*"); err != nil {
		s.logger.Warn("failed to invalidate note listing cache", zap.Error(err))
	}
}
