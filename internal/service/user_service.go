package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eesa/eesa-api/internal/academic"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/jobs"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	CreateWithStudentProfile(ctx context.Context, user *models.User, student *models.Student) error
	CreateWithFacultyProfile(ctx context.Context, user *models.User, faculty *models.Faculty) error
	CreateAdmin(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type rollNumberRepository interface {
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
	CountByEnrollmentYearCourse(ctx context.Context, year int, course models.Course) (int, error)
}

type mailEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// WelcomeMailJobType identifies welcome mail jobs on the queue.
const WelcomeMailJobType = "welcome_mail"

// WelcomeMailPayload carries everything the mail worker needs.
type WelcomeMailPayload struct {
	To       string
	FullName string
	Username string
	Password string
}

// RegisterStudentRequest holds payload for registering a student account.
type RegisterStudentRequest struct {
	Email          string        `json:"email" validate:"required,email"`
	FirstName      string        `json:"first_name" validate:"required"`
	LastName       string        `json:"last_name"`
	Phone          string        `json:"phone"`
	EnrollmentYear int           `json:"enrollment_year" validate:"required,min=2000,max=2100"`
	Course         models.Course `json:"course" validate:"required"`
	Branch         string        `json:"branch" validate:"required"`
	Password       string        `json:"password" validate:"omitempty,min=6"`
}

// RegisterFacultyRequest holds payload for registering a faculty account.
type RegisterFacultyRequest struct {
	Email       string    `json:"email" validate:"required,email"`
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	FacultyID   string    `json:"faculty_id" validate:"required"`
	Department  string    `json:"department" validate:"required"`
	Designation string    `json:"designation" validate:"required"`
	JoiningDate time.Time `json:"joining_date" validate:"required"`
	Password    string    `json:"password" validate:"omitempty,min=6"`
}

// UpdateUserRequest holds payload for updating account fields. The role is
// immutable and deliberately absent.
type UpdateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Verified  *bool  `json:"verified"`
	Active    *bool  `json:"active"`
}

// UserService handles account registration and management. Registration
// creates the user and its role profile in a single transaction and queues
// a welcome mail with the initial credentials.
type UserService struct {
	repo      userRepository
	rolls     rollNumberRepository
	mailQueue mailEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the user service. mailQueue may be nil, in
// which case no welcome mail is sent.
func NewUserService(repo userRepository, rolls rollNumberRepository, mailQueue mailEnqueuer, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, rolls: rolls, mailQueue: mailQueue, validator: validate, logger: logger}
}

// RegisterStudent creates a student account with a generated roll number
// used as both username and student ID.
func (s *UserService) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*models.User, *models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student registration payload")
	}
	if !req.Course.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown course")
	}

	rollNumber, err := s.nextRollNumber(ctx, req.EnrollmentYear, req.Course, req.Branch)
	if err != nil {
		return nil, nil, err
	}

	password := req.Password
	if password == "" {
		password = generatePassword()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     strings.ToLower(rollNumber),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         models.RoleStudent,
		Active:       true,
	}
	student := &models.Student{
		StudentID:       rollNumber,
		EnrollmentYear:  req.EnrollmentYear,
		CurrentSemester: academic.CurrentSemester(req.EnrollmentYear, req.Course, time.Now()),
		Course:          req.Course,
		Branch:          req.Branch,
		Batch:           academic.BatchLabel(req.EnrollmentYear, req.Course.MaxSemesters()/2),
		Active:          true,
	}

	if err := s.repo.CreateWithStudentProfile(ctx, user, student); err != nil {
		return nil, nil, mapCreateError(err, "student account already exists")
	}

	s.enqueueWelcomeMail(user, password)
	s.audit(ctx, user.ID, models.AuditActionCreate, "student", student.ID)
	return user, student, nil
}

// RegisterFaculty creates a faculty account. The faculty ID doubles as the
// username.
func (s *UserService) RegisterFaculty(ctx context.Context, req RegisterFacultyRequest) (*models.User, *models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty registration payload")
	}

	username := strings.ToLower(req.FacultyID)
	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "faculty id already registered")
	}

	password := req.Password
	if password == "" {
		password = generatePassword()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         models.RoleFaculty,
		Active:       true,
	}
	faculty := &models.Faculty{
		FacultyID:   req.FacultyID,
		Department:  req.Department,
		Designation: req.Designation,
		JoiningDate: req.JoiningDate,
	}

	if err := s.repo.CreateWithFacultyProfile(ctx, user, faculty); err != nil {
		return nil, nil, mapCreateError(err, "faculty account already exists")
	}

	s.enqueueWelcomeMail(user, password)
	s.audit(ctx, user.ID, models.AuditActionCreate, "faculty", faculty.ID)
	return user, faculty, nil
}

// Get returns one user account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns user accounts and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Update modifies account fields. Role changes are rejected upstream by the
// request shape; existing role and username are preserved.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.Email = req.Email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone
	if req.Verified != nil {
		user.Verified = *req.Verified
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapCreateError(err, "email already registered")
	}

	s.audit(ctx, user.ID, models.AuditActionUpdate, "user", user.ID)
	return user, nil
}

// nextRollNumber derives the next roll number for a cohort, e.g. 22CS014
// for the fourteenth 2022 BTech CSE admit. Retries past gaps left by
// imported records.
func (s *UserService) nextRollNumber(ctx context.Context, year int, course models.Course, branch string) (string, error) {
	count, err := s.rolls.CountByEnrollmentYearCourse(ctx, year, course)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count cohort")
	}

	prefix := fmt.Sprintf("%02d%s", year%100, branchCode(branch))
	for seq := count + 1; seq <= count+100; seq++ {
		candidate := fmt.Sprintf("%s%03d", prefix, seq)
		exists, err := s.rolls.ExistsByStudentID(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "roll number space exhausted for cohort")
}

func branchCode(branch string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(branch, " ", ""))
	if len(cleaned) > 2 {
		cleaned = cleaned[:2]
	}
	if cleaned == "" {
		cleaned = "XX"
	}
	return cleaned
}

func generatePassword() string {
	// Random UUID fragment; the welcome mail tells the user to change it.
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *UserService) enqueueWelcomeMail(user *models.User, password string) {
	if s.mailQueue == nil {
		return
	}
	err := s.mailQueue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: WelcomeMailJobType,
		Payload: WelcomeMailPayload{
			To:       user.Email,
			FullName: user.FullName(),
			Username: user.Username,
			Password: password,
		},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue welcome mail", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *UserService) audit(ctx context.Context, userID string, action, resource, resourceID string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err))
	}
}

func mapCreateError(err error, conflictMsg string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
		return appErrors.Clone(appErrors.ErrConflict, conflictMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist account")
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
