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

type subjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest holds payload for creating subjects.
type CreateSubjectRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Semester    int     `json:"semester" validate:"required,min=1,max=10"`
	Description *string `json:"description"`
}

// UpdateSubjectRequest holds payload for updating subjects.
type UpdateSubjectRequest struct {
	Name        string  `json:"name" validate:"required"`
	Semester    int     `json:"semester" validate:"required,min=1,max=10"`
	Description *string `json:"description"`
}

// SubjectService handles subject catalogue use-cases. Writes are admin
// only; reads are open to any authenticated caller.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs the subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects and pagination metadata.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one subject.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create registers a new subject.
func (s *SubjectService) Create(ctx context.Context, caller access.Identity, req CreateSubjectRequest) (*models.Subject, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindSubject}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}

	subject := &models.Subject{
		Code:        req.Code,
		Name:        req.Name,
		Semester:    req.Semester,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, mapCreateError(err, "subject code already exists")
	}
	return subject, nil
}

// Update modifies a subject. The code is immutable.
func (s *SubjectService) Update(ctx context.Context, caller access.Identity, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionUpdate, Kind: access.KindSubject}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subject.Name = req.Name
	subject.Semester = req.Semester
	subject.Description = req.Description

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, caller access.Identity, id string) error {
	if err := access.Authorize(caller, access.Request{Action: access.ActionDelete, Kind: access.KindSubject}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
