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

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error
	FindSubmissionByID(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.AssignmentSubmission, int, error)
	ReviewSubmission(ctx context.Context, id string, status models.SubmissionStatus, comments *string) error
	DeleteSubmission(ctx context.Context, id string) error
}

// CreateAssignmentRequest holds payload for creating assignments.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	SubjectID   string    `json:"subject_id" validate:"required"`
	Batch       string    `json:"batch" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	FilePath    *string   `json:"file_path"`
	// FacultyID names the authoring faculty when an admin creates the
	// assignment.
	FacultyID string `json:"faculty_id"`
}

// UpdateAssignmentRequest holds payload for updating assignments.
type UpdateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	FilePath    *string   `json:"file_path"`
}

// SubmitAssignmentRequest holds a student's answer upload.
type SubmitAssignmentRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	FilePath     string `json:"file_path" validate:"required"`
}

// ReviewSubmissionRequest holds a faculty verdict on a submission.
type ReviewSubmissionRequest struct {
	Status   models.SubmissionStatus `json:"status" validate:"required"`
	Comments *string                 `json:"comments"`
}

// AssignmentService handles assignments and their submissions.
type AssignmentService struct {
	repo      assignmentRepository
	grants    grantChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, grants grantChecker, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, grants: grants, validator: validate, logger: logger}
}

// List returns assignments visible within the caller's scope: faculty see
// their own, students see their batch.
func (s *AssignmentService) List(ctx context.Context, caller access.Identity, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindAssignment)
	if scope.Empty() {
		return []models.Assignment{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.FacultyID != "" {
		filter.FacultyID = scope.FacultyID
	}
	if scope.Batch != "" {
		filter.Batch = scope.Batch
	}

	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create publishes an assignment for a subject and batch.
func (s *AssignmentService) Create(ctx context.Context, caller access.Identity, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindAssignment}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	facultyID := req.FacultyID
	if caller.Role == models.RoleFaculty {
		facultyID = caller.Profile.FacultyID
	}
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "authoring faculty is required")
	}

	assignment := &models.Assignment{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		FacultyID:   facultyID,
		Batch:       req.Batch,
		DueDate:     req.DueDate,
		FilePath:    req.FilePath,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update modifies an assignment the caller authored.
func (s *AssignmentService) Update(ctx context.Context, caller access.Identity, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionUpdate,
		Kind:   access.KindAssignment,
		Owner:  access.Owner{FacultyID: assignment.FacultyID},
	}); err != nil {
		return nil, err
	}

	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	if req.FilePath != nil {
		assignment.FilePath = req.FilePath
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment the caller authored.
func (s *AssignmentService) Delete(ctx context.Context, caller access.Identity, id string) error {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionDelete,
		Kind:   access.KindAssignment,
		Owner:  access.Owner{FacultyID: assignment.FacultyID},
	}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// Submit stores a student's answer. Resubmitting before review replaces
// the previous upload. Late submissions are accepted but flagged in the
// log; the reviewer sees the timestamp.
func (s *AssignmentService) Submit(ctx context.Context, caller access.Identity, req SubmitAssignmentRequest) (*models.AssignmentSubmission, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindSubmission}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.Get(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if caller.Profile.Batch != "" && assignment.Batch != caller.Profile.Batch {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another batch")
	}
	if time.Now().After(assignment.DueDate) {
		s.logger.Info("late submission accepted",
			zap.String("assignment_id", assignment.ID),
			zap.String("student_id", caller.Profile.StudentID))
	}

	submission := &models.AssignmentSubmission{
		AssignmentID: req.AssignmentID,
		StudentID:    caller.Profile.StudentID,
		FilePath:     req.FilePath,
		Status:       models.SubmissionSubmitted,
	}
	if err := s.repo.UpsertSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	return submission, nil
}

// ListSubmissions returns submissions visible within the caller's scope.
func (s *AssignmentService) ListSubmissions(ctx context.Context, caller access.Identity, filter models.SubmissionFilter) ([]models.AssignmentSubmission, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindSubmission)
	if scope.Empty() {
		return []models.AssignmentSubmission{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.StudentID != "" {
		filter.StudentID = scope.StudentID
	}
	if scope.FacultyID != "" {
		filter.AssignmentFacultyID = scope.FacultyID
	}

	submissions, total, err := s.repo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ReviewSubmission records a verdict on a submission to an assignment the
// caller authored.
func (s *AssignmentService) ReviewSubmission(ctx context.Context, caller access.Identity, id string, req ReviewSubmissionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown submission status")
	}

	submission, err := s.repo.FindSubmissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	assignment, err := s.Get(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}

	if err := access.Authorize(caller, access.Request{Action: access.ActionReview, Kind: access.KindSubmission}); err != nil {
		return err
	}
	if caller.Role == models.RoleFaculty && assignment.FacultyID != caller.Profile.FacultyID {
		return appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another faculty's assignment")
	}

	if err := s.repo.ReviewSubmission(ctx, id, req.Status, req.Comments); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review submission")
	}
	return nil
}

// DeleteSubmission removes a submission the caller owns.
func (s *AssignmentService) DeleteSubmission(ctx context.Context, caller access.Identity, id string) error {
	submission, err := s.repo.FindSubmissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if err := access.Authorize(caller, access.Request{
		Action: access.ActionDelete,
		Kind:   access.KindSubmission,
		Owner:  access.Owner{StudentID: submission.StudentID},
	}); err != nil {
		return err
	}
	if err := s.repo.DeleteSubmission(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	return nil
}
