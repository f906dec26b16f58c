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

type facultyRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.FacultyDetail, error)
	Update(ctx context.Context, faculty *models.Faculty) error
}

// UpdateFacultyRequest holds payload for updating a faculty profile.
type UpdateFacultyRequest struct {
	Department  string `json:"department" validate:"required"`
	Designation string `json:"designation" validate:"required"`
}

// FacultyService handles faculty profile use-cases.
type FacultyService struct {
	repo      facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService constructs the faculty service.
func NewFacultyService(repo facultyRepository, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, validator: validate, logger: logger}
}

// List returns faculty profiles and pagination metadata.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, *models.Pagination, error) {
	faculty, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return faculty, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed faculty information.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.FacultyDetail, error) {
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// GetOwn returns the caller's own profile.
func (s *FacultyService) GetOwn(ctx context.Context, caller access.Identity) (*models.FacultyDetail, error) {
	faculty, err := s.repo.FindByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDataInconsistency, "faculty account has no profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// Update modifies a faculty profile. Admin only.
func (s *FacultyService) Update(ctx context.Context, caller access.Identity, id string, req UpdateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	if err := access.Authorize(caller, access.Request{Action: access.ActionUpdate, Kind: access.KindFaculty}); err != nil {
		return nil, err
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	faculty := detail.Faculty
	faculty.Department = req.Department
	faculty.Designation = req.Designation

	if err := s.repo.Update(ctx, &faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}
	return &faculty, nil
}
