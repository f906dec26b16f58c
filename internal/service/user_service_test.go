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
	"golang.org/x/crypto/bcrypt"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/jobs"
)

type mockUserRepo struct {
	users     map[string]models.User
	usernames map[string]bool
	students  []models.Student
	faculties []models.Faculty
	audits    []models.AuditLog
	createErr error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		user := u
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.usernames[username], nil
}

func (m *mockUserRepo) CreateWithStudentProfile(ctx context.Context, user *models.User, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	student.UserID = user.ID
	m.users[user.ID] = *user
	m.students = append(m.students, *student)
	return nil
}

func (m *mockUserRepo) CreateWithFacultyProfile(ctx context.Context, user *models.User, faculty *models.Faculty) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	faculty.UserID = user.ID
	m.users[user.ID] = *user
	m.faculties = append(m.faculties, *faculty)
	return nil
}

func (m *mockUserRepo) CreateAdmin(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockRollNumberRepo struct {
	count  int
	exists map[string]bool
}

func (m *mockRollNumberRepo) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	return m.exists[studentID], nil
}

func (m *mockRollNumberRepo) CountByEnrollmentYearCourse(ctx context.Context, year int, course models.Course) (int, error) {
	return m.count, nil
}

type mockMailQueue struct {
	jobs []jobs.Job
}

func (m *mockMailQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func TestUserServiceRegisterStudent(t *testing.T) {
	repo := &mockUserRepo{}
	rolls := &mockRollNumberRepo{count: 13}
	mail := &mockMailQueue{}
	svc := NewUserService(repo, rolls, mail, validator.New(), zap.NewNop())

	user, student, err := svc.RegisterStudent(context.Background(), RegisterStudentRequest{
		Email:          "asha@example.edu",
		FirstName:      "Asha",
		LastName:       "Nair",
		EnrollmentYear: 2022,
		Course:         models.CourseBTech,
		Branch:         "CSE",
	})
	require.NoError(t, err)

	assert.Equal(t, "22CS014", student.StudentID, "fourteenth 2022 admit gets sequence 014")
	assert.Equal(t, "22cs014", user.Username)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, "2022-2026", student.Batch)
	assert.GreaterOrEqual(t, student.CurrentSemester, 1)
	assert.LessOrEqual(t, student.CurrentSemester, models.CourseBTech.MaxSemesters())
	assert.Equal(t, user.ID, student.UserID)

	require.Len(t, mail.jobs, 1)
	assert.Equal(t, WelcomeMailJobType, mail.jobs[0].Type)
	payload, ok := mail.jobs[0].Payload.(WelcomeMailPayload)
	require.True(t, ok)
	assert.Equal(t, "asha@example.edu", payload.To)
	assert.Equal(t, "22cs014", payload.Username)
	require.NotEmpty(t, payload.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)),
		"mailed password must match the stored hash")

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionCreate, repo.audits[0].Action)
}

func TestUserServiceRegisterStudentSkipsTakenRolls(t *testing.T) {
	repo := &mockUserRepo{}
	rolls := &mockRollNumberRepo{count: 13, exists: map[string]bool{"22CS014": true, "22CS015": true}}
	svc := NewUserService(repo, rolls, nil, validator.New(), zap.NewNop())

	_, student, err := svc.RegisterStudent(context.Background(), RegisterStudentRequest{
		Email:          "vikram@example.edu",
		FirstName:      "Vikram",
		EnrollmentYear: 2022,
		Course:         models.CourseBTech,
		Branch:         "CSE",
	})
	require.NoError(t, err)
	assert.Equal(t, "22CS016", student.StudentID, "imported records leave gaps to probe past")
}

func TestUserServiceRegisterStudentUnknownCourse(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, &mockRollNumberRepo{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.RegisterStudent(context.Background(), RegisterStudentRequest{
		Email:          "x@example.edu",
		FirstName:      "X",
		EnrollmentYear: 2022,
		Course:         models.Course("Diploma"),
		Branch:         "CSE",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUserServiceRegisterFaculty(t *testing.T) {
	repo := &mockUserRepo{usernames: map[string]bool{}}
	mail := &mockMailQueue{}
	svc := NewUserService(repo, &mockRollNumberRepo{}, mail, validator.New(), zap.NewNop())

	user, faculty, err := svc.RegisterFaculty(context.Background(), RegisterFacultyRequest{
		Email:       "rao@example.edu",
		FirstName:   "Meera",
		LastName:    "Rao",
		FacultyID:   "FAC101",
		Department:  "CSE",
		Designation: "Assistant Professor",
		JoiningDate: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "fac101", user.Username)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.Equal(t, "FAC101", faculty.FacultyID)
	assert.Equal(t, user.ID, faculty.UserID)
	require.Len(t, mail.jobs, 1)
}

func TestUserServiceRegisterFacultyDuplicate(t *testing.T) {
	repo := &mockUserRepo{usernames: map[string]bool{"fac101": true}}
	svc := NewUserService(repo, &mockRollNumberRepo{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.RegisterFaculty(context.Background(), RegisterFacultyRequest{
		Email:       "rao@example.edu",
		FirstName:   "Meera",
		FacultyID:   "FAC101",
		Department:  "CSE",
		Designation: "Professor",
		JoiningDate: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceUpdatePreservesRole(t *testing.T) {
	repo := &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "22cs001", Role: models.RoleStudent, Email: "old@example.edu", Active: true},
	}}
	svc := NewUserService(repo, &mockRollNumberRepo{}, nil, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{
		Email:     "new@example.edu",
		FirstName: "Asha",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", updated.Email)
	assert.Equal(t, models.RoleStudent, updated.Role)
	assert.Equal(t, "22cs001", updated.Username)
}
