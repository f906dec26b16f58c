package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	SummaryByStudent(ctx context.Context, studentID string) ([]models.AttendanceSummary, error)
	Update(ctx context.Context, id string, present bool) error
	Delete(ctx context.Context, id string) error
}

type grantChecker interface {
	HasGrant(ctx context.Context, facultyID, subjectID string) (bool, error)
}

type studentExistenceChecker interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceRow is one student entry in a bulk attendance request.
type AttendanceRow struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
}

// BulkAttendanceRequest records attendance for a whole class hour in one
// call.
type BulkAttendanceRequest struct {
	SubjectID string          `json:"subject_id" validate:"required"`
	Date      time.Time       `json:"date" validate:"required"`
	Hour      int             `json:"hour" validate:"required"`
	Rows      []AttendanceRow `json:"rows" validate:"required,min=1,dive"`
	// FacultyID names the recording faculty when an admin submits the
	// batch. Faculty callers always record as themselves.
	FacultyID string `json:"faculty_id"`
}

const attendanceSummaryTTL = 5 * time.Minute

// AttendanceService records and reports attendance. Bulk writes reconcile
// against existing rows: the natural key (student, subject, date, hour)
// is upserted so a corrected batch replaces the first attempt.
type AttendanceService struct {
	repo      attendanceRepository
	grants    grantChecker
	students  studentExistenceChecker
	cache     summaryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service. cache may be
// nil.
func NewAttendanceService(repo attendanceRepository, grants grantChecker, students studentExistenceChecker, cache summaryCache, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, grants: grants, students: students, cache: cache, validator: validate, logger: logger}
}

// resolveRecorder determines which faculty a write is attributed to, and
// authorizes the write. A missing grant fails the whole batch before any
// row is touched.
func (s *AttendanceService) resolveRecorder(ctx context.Context, caller access.Identity, subjectID, requestedFacultyID string, kind access.Kind) (string, error) {
	facultyID := requestedFacultyID
	if caller.Role == models.RoleFaculty {
		facultyID = caller.Profile.FacultyID
	}
	if facultyID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "recording faculty is required")
	}

	hasGrant, err := s.grants.HasGrant(ctx, facultyID, subjectID)
	if err != nil {
		return "", err
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionCreate,
		Kind:     kind,
		HasGrant: hasGrant,
	}); err != nil {
		return "", err
	}
	return facultyID, nil
}

// BulkUpsert reconciles one class hour of attendance. Authorization
// failures reject the whole batch; per-row data problems are reported in
// the outcome without aborting sibling rows. Replays are idempotent.
func (s *AttendanceService) BulkUpsert(ctx context.Context, caller access.Identity, req BulkAttendanceRequest) ([]models.AttendanceRowOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if req.Hour < models.MinHour || req.Hour > models.MaxHour {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("hour must be between %d and %d", models.MinHour, models.MaxHour))
	}

	facultyID, err := s.resolveRecorder(ctx, caller, req.SubjectID, req.FacultyID, access.KindAttendance)
	if err != nil {
		return nil, err
	}

	outcomes := make([]models.AttendanceRowOutcome, 0, len(req.Rows))
	for _, row := range req.Rows {
		outcome := models.AttendanceRowOutcome{
			BulkRowOutcome: models.BulkRowOutcome{StudentID: row.StudentID},
			Present:        row.Present,
		}

		if _, err := s.students.FindByID(ctx, row.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				outcome.Error = "student not found"
			} else {
				outcome.Error = "failed to load student"
				s.logger.Error("attendance row lookup failed", zap.String("student_id", row.StudentID), zap.Error(err))
			}
			outcomes = append(outcomes, outcome)
			continue
		}

		record := &models.Attendance{
			StudentID: row.StudentID,
			SubjectID: req.SubjectID,
			FacultyID: facultyID,
			Date:      req.Date,
			Hour:      req.Hour,
			Present:   row.Present,
		}
		created, err := s.repo.Upsert(ctx, record)
		if err != nil {
			outcome.Error = "failed to save attendance"
			s.logger.Error("attendance upsert failed", zap.String("student_id", row.StudentID), zap.Error(err))
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Created = created
		outcomes = append(outcomes, outcome)

		s.invalidateSummary(ctx, row.StudentID)
	}
	return outcomes, nil
}

// List returns attendance records visible within the caller's scope.
func (s *AttendanceService) List(ctx context.Context, caller access.Identity, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindAttendance)
	if scope.Empty() {
		return []models.AttendanceRecord{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.StudentID != "" {
		filter.StudentID = scope.StudentID
	}
	if scope.FacultyID != "" {
		filter.FacultyID = scope.FacultyID
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Summary aggregates a student's presence per subject, cached briefly
// because the dashboard polls it.
func (s *AttendanceService) Summary(ctx context.Context, caller access.Identity, studentID string) ([]models.AttendanceSummary, error) {
	scope := access.ScopeFor(caller, access.KindAttendance)
	if scope.Empty() {
		return nil, appErrors.ErrUnauthorized
	}
	if scope.StudentID != "" && scope.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another student's summary")
	}

	cacheKey := summaryCacheKey(studentID)
	if s.cache != nil {
		var cached []models.AttendanceSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	summaries, err := s.repo.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summaries, attendanceSummaryTTL); err != nil {
			s.logger.Warn("failed to cache attendance summary", zap.Error(err))
		}
	}
	return summaries, nil
}

// Update rewrites one record's present flag. The caller must hold the
// grant and have recorded the row.
func (s *AttendanceService) Update(ctx context.Context, caller access.Identity, id string, present bool) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	hasGrant := false
	if caller.Role == models.RoleFaculty {
		hasGrant, err = s.grants.HasGrant(ctx, caller.Profile.FacultyID, record.SubjectID)
		if err != nil {
			return err
		}
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionUpdate,
		Kind:     access.KindAttendance,
		Owner:    access.Owner{FacultyID: record.FacultyID},
		HasGrant: hasGrant,
	}); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, present); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	s.invalidateSummary(ctx, record.StudentID)
	return nil
}

// Delete removes one record under the same ownership rules as Update.
func (s *AttendanceService) Delete(ctx context.Context, caller access.Identity, id string) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}

	hasGrant := false
	if caller.Role == models.RoleFaculty {
		hasGrant, err = s.grants.HasGrant(ctx, caller.Profile.FacultyID, record.SubjectID)
		if err != nil {
			return err
		}
	}
	if err := access.Authorize(caller, access.Request{
		Action:   access.ActionDelete,
		Kind:     access.KindAttendance,
		Owner:    access.Owner{FacultyID: record.FacultyID},
		HasGrant: hasGrant,
	}); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	s.invalidateSummary(ctx, record.StudentID)
	return nil
}

func summaryCacheKey(studentID string) string {
	return fmt.Sprintf("attendance:summary:%s", studentID)
}

func (s *AttendanceService) invalidateSummary(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, summaryCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate attendance summary cache", zap.Error(err))
	}
}
