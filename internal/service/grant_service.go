package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type grantRepository interface {
	Create(ctx context.Context, grant *models.FacultySubject) error
	FindByID(ctx context.Context, id string) (*models.FacultySubject, error)
	Exists(ctx context.Context, facultyID, subjectID string) (bool, error)
	List(ctx context.Context, filter models.FacultySubjectFilter) ([]models.FacultySubjectDetail, int, error)
	Delete(ctx context.Context, id string) error
}

type grantFacultyRepository interface {
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
}

type grantSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CreateGrantRequest holds payload for assigning a subject to a faculty.
type CreateGrantRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Batch     string `json:"batch" validate:"required"`
}

// GrantService manages teaching grants, the link that authorizes a faculty
// member to record attendance and marks for a subject.
type GrantService struct {
	repo      grantRepository
	faculty   grantFacultyRepository
	subjects  grantSubjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGrantService constructs the grant service.
func NewGrantService(repo grantRepository, faculty grantFacultyRepository, subjects grantSubjectRepository, validate *validator.Validate, logger *zap.Logger) *GrantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantService{repo: repo, faculty: faculty, subjects: subjects, validator: validate, logger: logger}
}

// List returns grants visible within the caller's scope.
func (s *GrantService) List(ctx context.Context, caller access.Identity, filter models.FacultySubjectFilter) ([]models.FacultySubjectDetail, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindFacultySubject)
	if scope.Empty() {
		return []models.FacultySubjectDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.FacultyID != "" {
		filter.FacultyID = scope.FacultyID
	}
	if scope.Batch != "" {
		filter.Batch = scope.Batch
	}

	grants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching grants")
	}
	return grants, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Create assigns a subject to a faculty member for a batch. Admin only.
func (s *GrantService) Create(ctx context.Context, caller access.Identity, req CreateGrantRequest) (*models.FacultySubject, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindFacultySubject}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grant payload")
	}

	if _, err := s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	grant := &models.FacultySubject{
		FacultyID: req.FacultyID,
		SubjectID: req.SubjectID,
		Batch:     req.Batch,
	}
	if err := s.repo.Create(ctx, grant); err != nil {
		return nil, mapCreateError(err, "grant already exists for this faculty, subject and batch")
	}
	return grant, nil
}

// Delete revokes a teaching grant. Admin only.
func (s *GrantService) Delete(ctx context.Context, caller access.Identity, id string) error {
	if err := access.Authorize(caller, access.Request{Action: access.ActionDelete, Kind: access.KindFacultySubject}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching grant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teaching grant")
	}
	return nil
}

// HasGrant reports whether the faculty holds a grant for the subject.
func (s *GrantService) HasGrant(ctx context.Context, facultyID, subjectID string) (bool, error) {
	exists, err := s.repo.Exists(ctx, facultyID, subjectID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching grant")
	}
	return exists, nil
}
