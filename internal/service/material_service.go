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

type materialRepository interface {
	Create(ctx context.Context, material *models.StudyMaterial) error
	FindByID(ctx context.Context, id string) (*models.StudyMaterial, error)
	List(ctx context.Context, filter models.StudyMaterialFilter) ([]models.StudyMaterial, int, error)
	Update(ctx context.Context, material *models.StudyMaterial) error
	Delete(ctx context.Context, id string) error
}

// CreateMaterialRequest holds payload for uploading study material.
type CreateMaterialRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	SubjectID   string `json:"subject_id" validate:"required"`
	Batch       string `json:"batch" validate:"required"`
	FilePath    string `json:"file_path" validate:"required"`
	FacultyID   string `json:"faculty_id"`
}

// UpdateMaterialRequest holds payload for updating study material.
type UpdateMaterialRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	FilePath    string `json:"file_path"`
}

// MaterialService handles faculty-uploaded study materials.
type MaterialService struct {
	repo      materialRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(repo materialRepository, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, validator: validate, logger: logger}
}

// List returns materials visible within the caller's scope.
func (s *MaterialService) List(ctx context.Context, caller access.Identity, filter models.StudyMaterialFilter) ([]models.StudyMaterial, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindStudyMaterial)
	if scope.Empty() {
		return []models.StudyMaterial{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.FacultyID != "" {
		filter.FacultyID = scope.FacultyID
	}
	if scope.Batch != "" {
		filter.Batch = scope.Batch
	}

	materials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study materials")
	}
	return materials, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one study material.
func (s *MaterialService) Get(ctx context.Context, id string) (*models.StudyMaterial, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study material")
	}
	return material, nil
}

// Create uploads study material for a subject and batch.
func (s *MaterialService) Create(ctx context.Context, caller access.Identity, req CreateMaterialRequest) (*models.StudyMaterial, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindStudyMaterial}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}

	facultyID := req.FacultyID
	if caller.Role == models.RoleFaculty {
		facultyID = caller.Profile.FacultyID
	}
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "uploading faculty is required")
	}

	material := &models.StudyMaterial{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		FacultyID:   facultyID,
		Batch:       req.Batch,
		FilePath:    req.FilePath,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study material")
	}
	return material, nil
}

// Update modifies material the caller uploaded.
func (s *MaterialService) Update(ctx context.Context, caller access.Identity, id string, req UpdateMaterialRequest) (*models.StudyMaterial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}

	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionUpdate,
		Kind:   access.KindStudyMaterial,
		Owner:  access.Owner{FacultyID: material.FacultyID},
	}); err != nil {
		return nil, err
	}

	material.Title = req.Title
	material.Description = req.Description
	if req.FilePath != "" {
		material.FilePath = req.FilePath
	}

	if err := s.repo.Update(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update study material")
	}
	return material, nil
}

// Delete removes material the caller uploaded.
func (s *MaterialService) Delete(ctx context.Context, caller access.Identity, id string) error {
	material, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionDelete,
		Kind:   access.KindStudyMaterial,
		Owner:  access.Owner{FacultyID: material.FacultyID},
	}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete study material")
	}
	return nil
}
