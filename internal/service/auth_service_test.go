package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	revoked       []string
	audits        []models.AuditLog
	lastLogin     *time.Time
	passwordHash  string
}

func (m *mockAuthUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		user := u
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = &ts
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordHash = passwordHash
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		m.users[id] = u
	}
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for token, rt := range m.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
			m.refreshTokens[token] = rt
			m.revoked = append(m.revoked, rt.ID)
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]models.RefreshToken)
	}
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		found := rt
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for token, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			m.refreshTokens[token] = rt
		}
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockAuthStudentRepo struct {
	profiles map[string]models.StudentDetail
}

func (m *mockAuthStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	if p, ok := m.profiles[userID]; ok {
		profile := p
		return &profile, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuthFacultyRepo struct {
	profiles map[string]models.FacultyDetail
}

func (m *mockAuthFacultyRepo) FindByUserID(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	if p, ok := m.profiles[userID]; ok {
		profile := p
		return &profile, nil
	}
	return nil, sql.ErrNoRows
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "eesa-api-test",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {
			ID:           "user-1",
			Username:     "22cs014",
			Email:        "asha@example.edu",
			PasswordHash: hashPassword(t, "secret123"),
			Role:         models.RoleStudent,
			Active:       true,
		},
	}}
	students := &mockAuthStudentRepo{profiles: map[string]models.StudentDetail{
		"user-1": {Student: models.Student{ID: "st-1", UserID: "user-1", StudentID: "22CS014", Batch: "2022-2026"}},
	}}
	svc := NewAuthService(repo, students, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "22cs014", Password: "secret123"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "22cs014", resp.User.Username)
	require.NotNil(t, resp.Profile)
	require.NotNil(t, repo.lastLogin)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "st-1", claims.ProfileID)
	assert.Equal(t, "2022-2026", claims.Batch)
}

func TestAuthServiceLoginInvalidPassword(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "22cs014", PasswordHash: hashPassword(t, "secret123"), Role: models.RoleStudent, Active: true},
	}}
	svc := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "22cs014", Password: "wrong"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(&mockAuthUserRepo{}, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "whatever"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code,
		"unknown users and bad passwords are reported identically")
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "22cs014", PasswordHash: hashPassword(t, "secret123"), Role: models.RoleStudent, Active: false},
	}}
	svc := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "22cs014", Password: "secret123"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceLoginMissingProfile(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "22cs014", PasswordHash: hashPassword(t, "secret123"), Role: models.RoleStudent, Active: true},
	}}
	svc := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "22cs014", Password: "secret123"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDataInconsistency.Code, appErr.Code,
		"a student account without a profile is a data problem, not bad credentials")
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "fac101", PasswordHash: hashPassword(t, "secret123"), Role: models.RoleFaculty, Active: true},
	}}
	faculty := &mockAuthFacultyRepo{profiles: map[string]models.FacultyDetail{
		"user-1": {Faculty: models.Faculty{ID: "fac-1", UserID: "user-1", FacultyID: "FAC101"}},
	}}
	svc := NewAuthService(repo, &mockAuthStudentRepo{}, faculty, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "fac101", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken, "refresh tokens rotate on use")

	used := repo.refreshTokens[login.RefreshToken]
	assert.True(t, used.Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err, "a rotated token cannot be replayed")
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := &mockAuthUserRepo{
		users: map[string]models.User{
			"user-1": {ID: "user-1", Username: "22cs014", PasswordHash: hashPassword(t, "oldpass1"), Role: models.RoleStudent, Active: true},
		},
		refreshTokens: map[string]models.RefreshToken{
			"tok": {ID: "rt-1", UserID: "user-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpass1",
	})
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "oldpass1",
		NewPassword: "newpass1",
	})
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordHash), []byte("newpass1")))
	assert.Contains(t, repo.revoked, "rt-1", "existing sessions are revoked on password change")
}

func TestAuthServiceValidateTokenRejectsForgedSecret(t *testing.T) {
	repo := &mockAuthUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Username: "admin", PasswordHash: hashPassword(t, "secret123"), Role: models.RoleAdmin, Active: true},
	}}
	issuer := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := issuer.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret123"})
	require.NoError(t, err)

	otherConfig := testAuthConfig()
	otherConfig.AccessTokenSecret = "different-secret"
	verifier := NewAuthService(repo, &mockAuthStudentRepo{}, &mockAuthFacultyRepo{}, validator.New(), zap.NewNop(), otherConfig)

	_, err = verifier.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
