package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/models"
)

type mockSemesterRepo struct {
	students []models.Student
	updates  map[string]int
	lastYear *int
}

func (m *mockSemesterRepo) ListActive(ctx context.Context, enrollmentYear *int) ([]models.Student, error) {
	m.lastYear = enrollmentYear
	if enrollmentYear == nil {
		return m.students, nil
	}
	var cohort []models.Student
	for _, s := range m.students {
		if s.EnrollmentYear == *enrollmentYear {
			cohort = append(cohort, s)
		}
	}
	return cohort, nil
}

func (m *mockSemesterRepo) UpdateSemester(ctx context.Context, id string, semester int) error {
	if m.updates == nil {
		m.updates = make(map[string]int)
	}
	m.updates[id] = semester
	return nil
}

// refNow falls in the odd term of academic year 2025.
var refNow = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func TestSemesterServiceRefresh(t *testing.T) {
	repo := &mockSemesterRepo{students: []models.Student{
		// 2022 BTech admit: derived semester is (2025-2022)*2+2 = 8.
		{ID: "st-1", StudentID: "22CS001", EnrollmentYear: 2022, Course: models.CourseBTech, CurrentSemester: 6},
		// Already correct, must be skipped.
		{ID: "st-2", StudentID: "22CS002", EnrollmentYear: 2022, Course: models.CourseBTech, CurrentSemester: 8},
		// MTech is capped at 4 even after many years.
		{ID: "st-3", StudentID: "20MT001", EnrollmentYear: 2020, Course: models.CourseMTech, CurrentSemester: 4},
	}}
	svc := NewSemesterService(repo, zap.NewNop())

	result, err := svc.Refresh(context.Background(), nil, false, refNow)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 1, result.Changed)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "st-1", result.Changes[0].StudentID)
	assert.Equal(t, 6, result.Changes[0].OldSemester)
	assert.Equal(t, 8, result.Changes[0].NewSemester)

	assert.Equal(t, map[string]int{"st-1": 8}, repo.updates)
}

func TestSemesterServiceRefreshDryRun(t *testing.T) {
	repo := &mockSemesterRepo{students: []models.Student{
		{ID: "st-1", StudentID: "22CS001", EnrollmentYear: 2022, Course: models.CourseBTech, CurrentSemester: 6},
	}}
	svc := NewSemesterService(repo, zap.NewNop())

	result, err := svc.Refresh(context.Background(), nil, true, refNow)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Changed)
	assert.Empty(t, repo.updates, "dry run reports changes without writing them")
}

func TestSemesterServiceRefreshCohortFilter(t *testing.T) {
	repo := &mockSemesterRepo{students: []models.Student{
		{ID: "st-1", StudentID: "22CS001", EnrollmentYear: 2022, Course: models.CourseBTech, CurrentSemester: 6},
		{ID: "st-2", StudentID: "23CS001", EnrollmentYear: 2023, Course: models.CourseBTech, CurrentSemester: 4},
	}}
	svc := NewSemesterService(repo, zap.NewNop())

	year := 2023
	result, err := svc.Refresh(context.Background(), &year, false, refNow)
	require.NoError(t, err)

	require.NotNil(t, repo.lastYear)
	assert.Equal(t, 2023, *repo.lastYear)
	assert.Equal(t, 1, result.Scanned)
	// 2023 admit in 2025: (2025-2023)*2+2 = 6.
	assert.Equal(t, map[string]int{"st-2": 6}, repo.updates)
}
