package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/academic"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type semesterStudentRepository interface {
	ListActive(ctx context.Context, enrollmentYear *int) ([]models.Student, error)
	UpdateSemester(ctx context.Context, id string, semester int) error
}

// SemesterChange describes one student whose stored semester differs from
// the derived one.
type SemesterChange struct {
	StudentID   string `json:"student_id"`
	RollNumber  string `json:"roll_number"`
	OldSemester int    `json:"old_semester"`
	NewSemester int    `json:"new_semester"`
}

// SemesterRefreshResult summarizes one refresh pass.
type SemesterRefreshResult struct {
	Scanned int              `json:"scanned"`
	Changed int              `json:"changed"`
	DryRun  bool             `json:"dry_run"`
	Changes []SemesterChange `json:"changes"`
}

// SemesterService recomputes stored semesters from enrollment years. The
// academic year turns over on August 1, so the refresh is normally run at
// the start of each term.
type SemesterService struct {
	repo   semesterStudentRepository
	logger *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterStudentRepository, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, logger: logger}
}

// Refresh derives the current semester for every active student and
// persists the ones that changed. With dryRun the changes are reported
// but not written. enrollmentYear optionally restricts the pass to one
// cohort.
func (s *SemesterService) Refresh(ctx context.Context, enrollmentYear *int, dryRun bool, now time.Time) (*SemesterRefreshResult, error) {
	students, err := s.repo.ListActive(ctx, enrollmentYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students for refresh")
	}

	result := &SemesterRefreshResult{Scanned: len(students), DryRun: dryRun}
	for _, student := range students {
		derived := academic.CurrentSemester(student.EnrollmentYear, student.Course, now)
		if derived == student.CurrentSemester {
			continue
		}

		change := SemesterChange{
			StudentID:   student.ID,
			RollNumber:  student.StudentID,
			OldSemester: student.CurrentSemester,
			NewSemester: derived,
		}
		result.Changes = append(result.Changes, change)
		result.Changed++

		if dryRun {
			continue
		}
		if err := s.repo.UpdateSemester(ctx, student.ID, derived); err != nil {
			s.logger.Error("semester update failed",
				zap.String("student_id", student.ID),
				zap.Int("semester", derived),
				zap.Error(err))
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist semester update")
		}
	}

	s.logger.Info("semester refresh complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("changed", result.Changed),
		zap.Bool("dry_run", dryRun))
	return result, nil
}
