package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type mockMarkRepo struct {
	marks      map[string]models.InternalMark
	reportRows []models.InternalMarkRecord
	lastFilter models.InternalMarkFilter
}

func markKey(m *models.InternalMark) string {
	return fmt.Sprintf("%s/%s/%s", m.StudentID, m.SubjectID, m.TestName)
}

func (m *mockMarkRepo) Upsert(ctx context.Context, mark *models.InternalMark) (bool, error) {
	if m.marks == nil {
		m.marks = make(map[string]models.InternalMark)
	}
	key := markKey(mark)
	_, existed := m.marks[key]
	if !existed {
		mark.ID = fmt.Sprintf("mark-%d", len(m.marks)+1)
	}
	m.marks[key] = *mark
	return !existed, nil
}

func (m *mockMarkRepo) FindByID(ctx context.Context, id string) (*models.InternalMark, error) {
	for _, mark := range m.marks {
		if mark.ID == id {
			found := mark
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockMarkRepo) List(ctx context.Context, filter models.InternalMarkFilter) ([]models.InternalMarkRecord, int, error) {
	m.lastFilter = filter
	return []models.InternalMarkRecord{}, 0, nil
}

func (m *mockMarkRepo) ReportRows(ctx context.Context, subjectID, testName string) ([]models.InternalMarkRecord, error) {
	return m.reportRows, nil
}

func (m *mockMarkRepo) Update(ctx context.Context, mark *models.InternalMark) error {
	m.marks[markKey(mark)] = *mark
	return nil
}

func (m *mockMarkRepo) Delete(ctx context.Context, id string) error {
	for key, mark := range m.marks {
		if mark.ID == id {
			delete(m.marks, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockSubjectFinder struct {
	subjects map[string]models.Subject
}

func (m *mockSubjectFinder) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		subject := s
		return &subject, nil
	}
	return nil, sql.ErrNoRows
}

func TestMarkServiceBulkUpsertRowAboveMax(t *testing.T) {
	repo := &mockMarkRepo{}
	grants := &mockGrantChecker{grants: map[string]bool{"fac-1/sub-1": true}}
	svc := NewMarkService(repo, grants, knownStudents("st-1", "st-2"), &mockSubjectFinder{}, validator.New(), zap.NewNop())

	outcomes, err := svc.BulkUpsert(context.Background(), facultyCaller("fac-1"), BulkMarkRequest{
		SubjectID: "sub-1",
		TestName:  "Internal 1",
		MaxMark:   50,
		Rows: []MarkRow{
			{StudentID: "st-1", ObtainedMark: 42},
			{StudentID: "st-2", ObtainedMark: 55},
		},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Created)
	assert.Equal(t, "obtained mark 55.0 exceeds maximum 50.0", outcomes[1].Error)
	assert.Len(t, repo.marks, 1, "the offending row must not be written")
}

func TestMarkServiceBulkUpsertMissingGrant(t *testing.T) {
	repo := &mockMarkRepo{}
	grants := &mockGrantChecker{grants: map[string]bool{}}
	svc := NewMarkService(repo, grants, knownStudents("st-1"), &mockSubjectFinder{}, validator.New(), zap.NewNop())

	_, err := svc.BulkUpsert(context.Background(), facultyCaller("fac-1"), BulkMarkRequest{
		SubjectID: "sub-1",
		TestName:  "Internal 1",
		MaxMark:   50,
		Rows:      []MarkRow{{StudentID: "st-1", ObtainedMark: 30}},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.marks)
}

func TestMarkServiceBulkUpsertReplay(t *testing.T) {
	repo := &mockMarkRepo{}
	grants := &mockGrantChecker{grants: map[string]bool{"fac-1/sub-1": true}}
	svc := NewMarkService(repo, grants, knownStudents("st-1"), &mockSubjectFinder{}, validator.New(), zap.NewNop())

	req := BulkMarkRequest{
		SubjectID: "sub-1",
		TestName:  "Internal 1",
		MaxMark:   50,
		Rows:      []MarkRow{{StudentID: "st-1", ObtainedMark: 31}},
	}

	first, err := svc.BulkUpsert(context.Background(), facultyCaller("fac-1"), req)
	require.NoError(t, err)
	assert.True(t, first[0].Created)

	req.Rows[0].ObtainedMark = 35
	second, err := svc.BulkUpsert(context.Background(), facultyCaller("fac-1"), req)
	require.NoError(t, err)
	assert.False(t, second[0].Created, "re-entered score sheet replaces the previous values")
	for _, mark := range repo.marks {
		assert.Equal(t, 35.0, mark.ObtainedMark)
	}
}

func TestMarkServiceUpdateAboveMax(t *testing.T) {
	repo := &mockMarkRepo{marks: map[string]models.InternalMark{
		"st-1/sub-1/Internal 1": {ID: "mark-1", StudentID: "st-1", SubjectID: "sub-1", FacultyID: "fac-1", TestName: "Internal 1", MaxMark: 50, ObtainedMark: 40},
	}}
	grants := &mockGrantChecker{grants: map[string]bool{"fac-1/sub-1": true}}
	svc := NewMarkService(repo, grants, knownStudents(), &mockSubjectFinder{}, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), facultyCaller("fac-1"), "mark-1", 60, nil)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestMarkServiceListScopesStudent(t *testing.T) {
	repo := &mockMarkRepo{}
	svc := NewMarkService(repo, &mockGrantChecker{}, knownStudents(), &mockSubjectFinder{}, validator.New(), zap.NewNop())

	_, _, err := svc.List(context.Background(), studentCaller("st-4", "2022-2026"), models.InternalMarkFilter{
		StudentID: "st-other",
	})
	require.NoError(t, err)
	assert.Equal(t, "st-4", repo.lastFilter.StudentID)
}

func TestMarkServiceReport(t *testing.T) {
	remarks := "good"
	repo := &mockMarkRepo{reportRows: []models.InternalMarkRecord{
		{
			InternalMark: models.InternalMark{MaxMark: 50, ObtainedMark: 42},
			StudentName:  "Asha Nair",
			RollNumber:   "22CS001",
		},
		{
			InternalMark: models.InternalMark{MaxMark: 50, ObtainedMark: 47, Remarks: &remarks},
			StudentName:  "Vikram Rao",
			RollNumber:   "22CS002",
		},
	}}
	subjects := &mockSubjectFinder{subjects: map[string]models.Subject{
		"sub-1": {ID: "sub-1", Code: "CS301", Name: "Operating Systems"},
	}}
	svc := NewMarkService(repo, &mockGrantChecker{}, knownStudents(), subjects, validator.New(), zap.NewNop())

	pdf, err := svc.Report(context.Background(), facultyCaller("fac-1"), "sub-1", "Internal 1")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
