package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type mockStudentRepo struct {
	students    map[string]models.StudentDetail
	deactivated []string
	lastFilter  models.StudentFilter
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	details := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		details = append(details, s)
	}
	return details, len(details), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		detail := s
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			detail := s
			return &detail, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	detail := m.students[student.ID]
	detail.Student = *student
	m.students[student.ID] = detail
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockRegistrar struct {
	registered []RegisterStudentRequest
	failEmails map[string]error
	nextSeq    int
}

func (m *mockRegistrar) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*models.User, *models.Student, error) {
	if err, ok := m.failEmails[req.Email]; ok {
		return nil, nil, err
	}
	m.registered = append(m.registered, req)
	m.nextSeq++
	student := &models.Student{StudentID: strings.ToUpper(branchCode(req.Branch)) + "00" + string(rune('0'+m.nextSeq))}
	return &models.User{Email: req.Email}, student, nil
}

func TestStudentServiceImportRoster(t *testing.T) {
	registrar := &mockRegistrar{failEmails: map[string]error{
		"dupe@example.edu": appErrors.Clone(appErrors.ErrConflict, "student account already exists"),
	}}
	svc := NewStudentService(&mockStudentRepo{}, registrar, validator.New(), zap.NewNop())

	csv := strings.Join([]string{
		"email,first_name,last_name,phone,enrollment_year,course,branch",
		"asha@example.edu,Asha,Nair,,2022,BTech,CSE",
		"dupe@example.edu,Dup,Licate,,2022,BTech,CSE",
		"bad@example.edu,Bad,Year,,notayear,BTech,CSE",
		"vikram@example.edu,Vikram,Rao,,2023,BTech,ECE",
	}, "\n")

	outcomes, err := svc.ImportRoster(context.Background(), adminCaller, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.Empty(t, outcomes[0].Error)
	assert.NotEmpty(t, outcomes[0].StudentID)
	assert.Contains(t, outcomes[1].Error, "already exists")
	assert.Equal(t, "invalid enrollment_year", outcomes[2].Error)
	assert.Empty(t, outcomes[3].Error, "a failed row must not stop the rest of the file")

	require.Len(t, registrar.registered, 2)
	assert.Equal(t, 2023, registrar.registered[1].EnrollmentYear)
	assert.Equal(t, models.CourseBTech, registrar.registered[1].Course)
}

func TestStudentServiceImportRosterMissingColumn(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockRegistrar{}, validator.New(), zap.NewNop())

	csv := "email,first_name\nasha@example.edu,Asha\n"
	_, err := svc.ImportRoster(context.Background(), adminCaller, strings.NewReader(csv))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceImportRosterForbiddenForFaculty(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockRegistrar{}, validator.New(), zap.NewNop())

	_, err := svc.ImportRoster(context.Background(), facultyCaller("fac-1"), strings.NewReader("email\n"))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStudentServiceExportRoster(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"st-1": {
			Student:  models.Student{ID: "st-1", StudentID: "22CS001", EnrollmentYear: 2022, Course: models.CourseBTech, Branch: "CSE", Batch: "2022-2026", CurrentSemester: 5, Active: true},
			FullName: "Asha Nair",
			Email:    "asha@example.edu",
		},
	}}
	svc := NewStudentService(repo, &mockRegistrar{}, validator.New(), zap.NewNop())

	out, err := svc.ExportRoster(context.Background(), adminCaller, models.StudentFilter{})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "student_id")
	assert.Contains(t, body, "22CS001")
	assert.Contains(t, body, "Asha Nair")
}

func TestStudentServiceListScopesStudentToSelf(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"st-1": {Student: models.Student{ID: "st-1", UserID: "user-st-1", StudentID: "22CS001"}},
		"st-2": {Student: models.Student{ID: "st-2", UserID: "user-st-2", StudentID: "22CS002"}},
	}}
	svc := NewStudentService(repo, &mockRegistrar{}, validator.New(), zap.NewNop())

	students, _, err := svc.List(context.Background(), studentCaller("st-1", "2022-2026"), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "st-1", students[0].ID)
}

func TestStudentServiceUpdateActiveIsAdminOnly(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"st-1": {Student: models.Student{ID: "st-1", UserID: "user-st-1", StudentID: "22CS001", Active: true}},
	}}
	svc := NewStudentService(repo, &mockRegistrar{}, validator.New(), zap.NewNop())

	inactive := false
	_, err := svc.Update(context.Background(), studentCaller("st-1", "2022-2026"), "st-1", UpdateStudentRequest{
		Active: &inactive,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	updated, err := svc.Update(context.Background(), adminCaller, "st-1", UpdateStudentRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentDetail{
		"st-1": {Student: models.Student{ID: "st-1", Active: true}},
	}}
	svc := NewStudentService(repo, &mockRegistrar{}, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), studentCaller("st-1", "2022-2026"), "st-1")
	require.Error(t, err, "students cannot deactivate accounts")

	err = svc.Deactivate(context.Background(), adminCaller, "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"st-1"}, repo.deactivated)
}
