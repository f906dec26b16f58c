package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.Assignment
	submissions map[string]models.AssignmentSubmission
	lastFilter  models.SubmissionFilter
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.Assignment)
	}
	assignment.ID = fmt.Sprintf("as-%d", len(m.assignments)+1)
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		assignment := a
		return &assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	return nil, 0, nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.assignments, id)
	return nil
}

func (m *mockAssignmentRepo) UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	if m.submissions == nil {
		m.submissions = make(map[string]models.AssignmentSubmission)
	}
	key := submission.AssignmentID + "/" + submission.StudentID
	if existing, ok := m.submissions[key]; ok {
		submission.ID = existing.ID
	} else {
		submission.ID = fmt.Sprintf("sub-%d", len(m.submissions)+1)
	}
	m.submissions[key] = *submission
	return nil
}

func (m *mockAssignmentRepo) FindSubmissionByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	for _, s := range m.submissions {
		if s.ID == id {
			submission := s
			return &submission, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.AssignmentSubmission, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockAssignmentRepo) ReviewSubmission(ctx context.Context, id string, status models.SubmissionStatus, comments *string) error {
	for key, s := range m.submissions {
		if s.ID == id {
			s.Status = status
			s.Comments = comments
			m.submissions[key] = s
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAssignmentRepo) DeleteSubmission(ctx context.Context, id string) error {
	for key, s := range m.submissions {
		if s.ID == id {
			delete(m.submissions, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestAssignmentServiceSubmitBatchMismatch(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"as-1": {ID: "as-1", Batch: "2023-2027", FacultyID: "fac-1", DueDate: time.Now().Add(24 * time.Hour)},
	}}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), studentCaller("st-1", "2022-2026"), SubmitAssignmentRequest{
		AssignmentID: "as-1",
		FilePath:     "/uploads/submissions/answer.pdf",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAssignmentServiceResubmitReplacesUpload(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"as-1": {ID: "as-1", Batch: "2022-2026", FacultyID: "fac-1", DueDate: time.Now().Add(24 * time.Hour)},
	}}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	first, err := svc.Submit(context.Background(), studentCaller("st-1", "2022-2026"), SubmitAssignmentRequest{
		AssignmentID: "as-1",
		FilePath:     "/uploads/submissions/v1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, first.Status)

	second, err := svc.Submit(context.Background(), studentCaller("st-1", "2022-2026"), SubmitAssignmentRequest{
		AssignmentID: "as-1",
		FilePath:     "/uploads/submissions/v2.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "a resubmission replaces the earlier upload")
	assert.Len(t, repo.submissions, 1)
}

func TestAssignmentServiceLateSubmissionAccepted(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.Assignment{
		"as-1": {ID: "as-1", Batch: "2022-2026", FacultyID: "fac-1", DueDate: time.Now().Add(-time.Hour)},
	}}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	submission, err := svc.Submit(context.Background(), studentCaller("st-1", "2022-2026"), SubmitAssignmentRequest{
		AssignmentID: "as-1",
		FilePath:     "/uploads/submissions/late.pdf",
	})
	require.NoError(t, err, "late submissions are accepted, the reviewer sees the timestamp")
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
}

func TestAssignmentServiceReviewOtherFacultysAssignment(t *testing.T) {
	repo := &mockAssignmentRepo{
		assignments: map[string]models.Assignment{
			"as-1": {ID: "as-1", Batch: "2022-2026", FacultyID: "fac-1"},
		},
		submissions: map[string]models.AssignmentSubmission{
			"as-1/st-1": {ID: "sub-1", AssignmentID: "as-1", StudentID: "st-1", Status: models.SubmissionSubmitted},
		},
	}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	err := svc.ReviewSubmission(context.Background(), facultyCaller("fac-2"), "sub-1", ReviewSubmissionRequest{
		Status: models.SubmissionRedo,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	err = svc.ReviewSubmission(context.Background(), facultyCaller("fac-1"), "sub-1", ReviewSubmissionRequest{
		Status: models.SubmissionRedo,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRedo, repo.submissions["as-1/st-1"].Status)
}

func TestAssignmentServiceListSubmissionsScope(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	_, _, err := svc.ListSubmissions(context.Background(), studentCaller("st-1", "2022-2026"), models.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "st-1", repo.lastFilter.StudentID)

	_, _, err = svc.ListSubmissions(context.Background(), facultyCaller("fac-1"), models.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "fac-1", repo.lastFilter.AssignmentFacultyID)
}

func TestAssignmentServiceCreateAttributesFaculty(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := NewAssignmentService(repo, &mockGrantChecker{}, validator.New(), zap.NewNop())

	assignment, err := svc.Create(context.Background(), facultyCaller("fac-1"), CreateAssignmentRequest{
		Title:     "Process scheduling",
		SubjectID: "sub-1",
		Batch:     "2022-2026",
		DueDate:   time.Now().Add(7 * 24 * time.Hour),
		FacultyID: "fac-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "fac-1", assignment.FacultyID, "faculty callers always author as themselves")
}
