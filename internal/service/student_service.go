package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
	"github.com/eesa/eesa-api/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type studentRegistrar interface {
	RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*models.User, *models.Student, error)
}

// UpdateStudentRequest holds payload for updating a student profile.
type UpdateStudentRequest struct {
	CurrentSemester *int     `json:"current_semester" validate:"omitempty,min=1,max=10"`
	Branch          string   `json:"branch"`
	Batch           string   `json:"batch"`
	CGPA            *float64 `json:"cgpa" validate:"omitempty,min=0,max=10"`
	Active          *bool    `json:"active"`
}

// ImportRowOutcome reports the result of one CSV row during a roster
// import.
type ImportRowOutcome struct {
	Line      int    `json:"line"`
	StudentID string `json:"student_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StudentService handles student profile use-cases including roster
// import and export.
type StudentService struct {
	repo      studentRepository
	registrar studentRegistrar
	csv       *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, registrar studentRegistrar, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, registrar: registrar, csv: export.NewCSVExporter(), validator: validate, logger: logger}
}

// List returns students visible within the caller's scope.
func (s *StudentService) List(ctx context.Context, caller access.Identity, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	scope := access.ScopeFor(caller, access.KindStudent)
	if scope.Empty() {
		return []models.StudentDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
	}
	if scope.StudentID != "" {
		// A student only ever lists themselves.
		detail, err := s.Get(ctx, scope.StudentID)
		if err != nil {
			return nil, nil, err
		}
		return []models.StudentDetail{*detail}, paginationFor(1, 1, 1), nil
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetOwn returns the caller's own profile.
func (s *StudentService) GetOwn(ctx context.Context, caller access.Identity) (*models.StudentDetail, error) {
	student, err := s.repo.FindByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDataInconsistency, "student account has no profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Update modifies a student profile. Students may only touch their own
// record; admins may touch any.
func (s *StudentService) Update(ctx context.Context, caller access.Identity, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := access.Authorize(caller, access.Request{
		Action: access.ActionUpdate,
		Kind:   access.KindStudent,
		Owner:  access.Owner{StudentID: detail.ID, UserID: detail.UserID},
	}); err != nil {
		return nil, err
	}

	student := detail.Student
	if req.CurrentSemester != nil {
		student.CurrentSemester = *req.CurrentSemester
	}
	if req.Branch != "" {
		student.Branch = req.Branch
	}
	if req.Batch != "" {
		student.Batch = req.Batch
	}
	if req.CGPA != nil {
		student.CGPA = req.CGPA
	}
	if req.Active != nil {
		if caller.Role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins change active status")
		}
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Deactivate soft-deletes a student profile and its account.
func (s *StudentService) Deactivate(ctx context.Context, caller access.Identity, id string) error {
	if err := access.Authorize(caller, access.Request{Action: access.ActionDelete, Kind: access.KindStudent}); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// rosterHeaders is the column order of roster CSV files, both import and
// export.
var rosterHeaders = []string{"email", "first_name", "last_name", "phone", "enrollment_year", "course", "branch"}

// ImportRoster registers one student per CSV row. Row failures are
// reported per line and do not abort the rest of the file.
func (s *StudentService) ImportRoster(ctx context.Context, caller access.Identity, r io.Reader) ([]ImportRowOutcome, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindStudent}); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable csv")
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"email", "first_name", "enrollment_year", "course", "branch"} {
		if _, ok := index[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing csv column %q", required))
		}
	}

	var outcomes []ImportRowOutcome
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			outcomes = append(outcomes, ImportRowOutcome{Line: line, Error: "malformed csv row"})
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		year, convErr := strconv.Atoi(field("enrollment_year"))
		if convErr != nil {
			outcomes = append(outcomes, ImportRowOutcome{Line: line, Email: field("email"), Error: "invalid enrollment_year"})
			continue
		}

		req := RegisterStudentRequest{
			Email:          field("email"),
			FirstName:      field("first_name"),
			LastName:       field("last_name"),
			Phone:          field("phone"),
			EnrollmentYear: year,
			Course:         models.Course(field("course")),
			Branch:         field("branch"),
		}
		_, student, regErr := s.registrar.RegisterStudent(ctx, req)
		if regErr != nil {
			outcomes = append(outcomes, ImportRowOutcome{Line: line, Email: req.Email, Error: regErr.Error()})
			continue
		}
		outcomes = append(outcomes, ImportRowOutcome{Line: line, Email: req.Email, StudentID: student.StudentID})
	}
	return outcomes, nil
}

// ExportRoster renders the filtered roster as CSV.
func (s *StudentService) ExportRoster(ctx context.Context, caller access.Identity, filter models.StudentFilter) ([]byte, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionRead, Kind: access.KindStudent}); err != nil {
		return nil, err
	}

	filter.Page = 1
	filter.PageSize = 200
	var rows []map[string]string
	for {
		students, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		for _, st := range students {
			rows = append(rows, map[string]string{
				"student_id":       st.StudentID,
				"full_name":        st.FullName,
				"email":            st.Email,
				"enrollment_year":  strconv.Itoa(st.EnrollmentYear),
				"course":           string(st.Course),
				"branch":           st.Branch,
				"batch":            st.Batch,
				"current_semester": strconv.Itoa(st.CurrentSemester),
				"active":           strconv.FormatBool(st.Active),
			})
		}
		if filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	return s.csv.Render(export.Dataset{
		Headers: []string{"student_id", "full_name", "email", "enrollment_year", "course", "branch", "batch", "current_semester", "active"},
		Rows:    rows,
	})
}

// RosterTemplate renders an empty import template with the expected
// headers.
func (s *StudentService) RosterTemplate() ([]byte, error) {
	return s.csv.Render(export.Dataset{Headers: rosterHeaders})
}
