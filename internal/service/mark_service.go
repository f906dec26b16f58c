package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/export"
)

type markRepository interface {
	Upsert(ctx context.Context, mark *models.InternalMark) (bool, error)
	FindByID(ctx context.Context, id string) (*models.InternalMark, error)
	List(ctx context.Context, filter models.InternalMarkFilter) ([]models.InternalMarkRecord, int, error)
	ReportRows(ctx context.Context, subjectID, testName string) ([]models.InternalMarkRecord, error)
	Update(ctx context.Context, mark *models.InternalMark) error
	Delete(ctx context.Context, id string) error
}

type markSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// MarkRow is one student entry in a bulk mark request.
type MarkRow struct {
	StudentID    string  `json:"student_id" validate:"required"`
	ObtainedMark float64 `json:"obtained_mark" validate:"min=0"`
	Remarks      *string `json:"remarks"`
}

// BulkMarkRequest records one test's scores for a class in one call.
type BulkMarkRequest struct {
	SubjectID string    `json:"subject_id" validate:"required"`
	TestName  string    `json:"test_name" validate:"required"`
	MaxMark   float64   `json:"max_mark" validate:"required,gt=0"`
	Rows      []MarkRow `json:"rows" validate:"required,min=1,dive"`
	// FacultyID names the recording faculty when an admin submits the
	// batch.
	FacultyID string `json:"faculty_id"`
}

// MarkService records and reports internal test marks. Bulk writes upsert
// on (student, subject, test_name) so re-entered score sheets replace the
// previous values.
type MarkService struct {
	repo      markRepository
	grants    grantChecker
	students  studentExistenceChecker
	subjects  markSubjectRepository
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs the mark service.
func NewMarkService(repo markRepository, grants grantChecker, students studentExistenceChecker, subjects markSubjectRepository, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{repo: repo, grants: grants, students: students, subjects: subjects, pdf: export.NewPDFExporter(), validator: validate, logger: logger}
}

// BulkUpsert reconciles one score sheet. A missing grant rejects the
// whole batch; rows with data problems (unknown student, score above the
// maximum) are reported individually without aborting siblings.
func (s *MarkService) BulkUpsert(ctx context.Context, caller access.Identity, req BulkMarkRequest) ([]models.MarkRowOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}

	facultyID := req.FacultyID
	if caller.Role == models.RoleFaculty {
		facultyID = caller.Profile.FacultyID
	}
	if facultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recording faculty is required")
	}

	hasGrant, err := s.grants.HasGrant(ctx, facultyID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionCreate,
		Kind:     access.KindInternalMark,
		HasGrant: hasGrant,
	}); err != nil {
		return nil, err
	}

	outcomes := make([]models.MarkRowOutcome, 0, len(req.Rows))
	for _, row := range req.Rows {
		outcome := models.MarkRowOutcome{
			BulkRowOutcome: models.BulkRowOutcome{StudentID: row.StudentID},
			ObtainedMark:   row.ObtainedMark,
		}

		if row.ObtainedMark > req.MaxMark {
			outcome.Error = fmt.Sprintf("obtained mark %.1f exceeds maximum %.1f", row.ObtainedMark, req.MaxMark)
			outcomes = append(outcomes, outcome)
			continue
		}
		if _, err := s.students.FindByID(ctx, row.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome.Error = "student not found"
			} else {
				outcome.Error = "failed to load student"
				s.logger.Error("mark row lookup failed", zap.String("student_id", row.StudentID), zap.Error(err))
			}
			outcomes = append(outcomes, outcome)
			continue
		}

		mark := &models.InternalMark{
			StudentID:    row.StudentID,
			SubjectID:    req.SubjectID,
			FacultyID:    facultyID,
			TestName:     req.TestName,
			MaxMark:      req.MaxMark,
			ObtainedMark: row.ObtainedMark,
			Remarks:      row.Remarks,
		}
		created, err := s.repo.Upsert(ctx, mark)
		if err != nil {
			outcome.Error = "failed to save mark"
			s.logger.Error("mark upsert failed", zap.String("student_id", row.StudentID), zap.Error(err))
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Created = created
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// List returns mark records visible within the caller's scope.
func (s *MarkService) List(ctx context.Context, caller access.Identity, filter models.InternalMarkFilter) ([]models.InternalMarkRecord, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindInternalMark)
	if scope.Empty() {
		return []models.InternalMarkRecord{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.StudentID != "" {
		filter.StudentID = scope.StudentID
	}
	if scope.FacultyID != "" {
		filter.FacultyID = scope.FacultyID
	}

	marks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	return marks, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Update rewrites one mark under grant and ownership rules.
func (s *MarkService) Update(ctx context.Context, caller access.Identity, id string, obtained float64, remarks *string) (*models.InternalMark, error) {
	mark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}

	hasGrant := false
	if caller.Role == models.RoleFaculty {
		hasGrant, err = s.grants.HasGrant(ctx, caller.Profile.FacultyID, mark.SubjectID)
		if err != nil {
			return nil, err
		}
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionUpdate,
		Kind:     access.KindInternalMark,
		Owner:    access.Owner{FacultyID: mark.FacultyID},
		HasGrant: hasGrant,
	}); err != nil {
		return nil, err
	}

	if obtained > mark.MaxMark {
		return nil, appErrors.Clone(appErrors.ErrValidation, "obtained mark exceeds maximum")
	}
	mark.ObtainedMark = obtained
	mark.Remarks = remarks

	if err := s.repo.Update(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mark")
	}
	return mark, nil
}

// Delete removes one mark under the same rules as Update.
func (s *MarkService) Delete(ctx context.Context, caller access.Identity, id string) error {
	mark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
	}

	hasGrant := false
	if caller.Role == models.RoleFaculty {
		hasGrant, err = s.grants.HasGrant(ctx, caller.Profile.FacultyID, mark.SubjectID)
		if err != nil {
			return err
		}
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionDelete,
		Kind:     access.KindInternalMark,
		Owner:    access.Owner{FacultyID: mark.FacultyID},
		HasGrant: hasGrant,
	}); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete mark")
	}
	return nil
}

// Report renders one subject's test scores as a PDF sheet ordered by roll
// number.
func (s *MarkService) Report(ctx context.Context, caller access.Identity, subjectID, testName string) ([]byte, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionRead, Kind: access.KindInternalMark}); err != nil {
		return nil, err
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	rows, err := s.repo.ReportRows(ctx, subjectID, testName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report rows")
	}

	dataset := export.Dataset{
		Headers: []string{"Roll No", "Name", "Max", "Obtained", "Remarks"},
	}
	for _, row := range rows {
		remarks := ""
		if row.Remarks != nil {
			remarks = *row.Remarks
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll No":  row.RollNumber,
			"Name":     row.StudentName,
			"Max":      fmt.Sprintf("%.1f", row.MaxMark),
			"Obtained": fmt.Sprintf("%.1f", row.ObtainedMark),
			"Remarks":  remarks,
		})
	}

	title := fmt.Sprintf("%s - %s - %s", subject.Code, subject.Name, testName)
	pdf, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return pdf, nil
}
