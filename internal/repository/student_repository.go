package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eesa/eesa-api/internal/models"
)

const studentColumns = `s.id, s.user_id, s.student_id, s.enrollment_year, s.current_semester, s.course, s.branch, s.batch, s.cgpa, s.active, s.created_at, s.updated_at`

const studentDetailColumns = studentColumns + `, u.username, u.email, u.first_name || ' ' || u.last_name AS full_name`

// StudentRepository provides database access for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// insertStudentTx inserts a student profile inside an existing transaction.
// Used by the user factory so user and profile commit together.
func insertStudentTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, student_id, enrollment_year, current_semester, course, branch, batch, cgpa, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := tx.ExecContext(ctx, query,
		student.ID, student.UserID, student.StudentID, student.EnrollmentYear, student.CurrentSemester,
		student.Course, student.Branch, student.Batch, student.CGPA, student.Active, student.CreatedAt, student.UpdatedAt); err != nil {
		return conflictOr(err, "insert student profile")
	}
	return nil
}

// FindByID returns a student profile with user details.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1 LIMIT 1`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByUserID returns the student profile owned by a user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1 LIMIT 1`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user id: %w", err)
	}
	return &student, nil
}

// ExistsByStudentID reports whether a roll number is already assigned.
func (r *StudentRepository) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		return false, fmt.Errorf("check student id: %w", err)
	}
	return exists, nil
}

// CountByEnrollmentYearCourse counts students sharing an enrollment year and
// course, used for roll number sequencing.
func (r *StudentRepository) CountByEnrollmentYearCourse(ctx context.Context, year int, course models.Course) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE enrollment_year = $1 AND course = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, year, course); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// List returns student profiles based on filters with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	baseQuery := `FROM students s JOIN users u ON u.id = s.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Batch != "" {
		conditions = append(conditions, fmt.Sprintf("s.batch = $%d", len(args)+1))
		args = append(args, filter.Batch)
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("s.branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Course != nil {
		conditions = append(conditions, fmt.Sprintf("s.course = $%d", len(args)+1))
		args = append(args, *filter.Course)
	}
	if filter.EnrollmentYear != nil {
		conditions = append(conditions, fmt.Sprintf("s.enrollment_year = $%d", len(args)+1))
		args = append(args, *filter.EnrollmentYear)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("s.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.student_id ILIKE $%d OR u.first_name || ' ' || u.last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"student_id":       "s.student_id",
		"enrollment_year":  "s.enrollment_year",
		"current_semester": "s.current_semester",
		"created_at":       "s.created_at",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "s.student_id"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentDetailColumns, whereClause, column, order, size, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Update persists mutable student profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET current_semester = $2, branch = $3, batch = $4, cgpa = $5, active = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.CurrentSemester, student.Branch, student.Batch, student.CGPA, student.Active, student.UpdatedAt); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a student profile and its user account.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student deactivate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE students SET active = FALSE, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = (SELECT user_id FROM students WHERE id = $1)`, id, now); err != nil {
		return fmt.Errorf("deactivate student user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit student deactivate: %w", err)
	}
	committed = true
	return nil
}

// ListActive returns active students, optionally restricted to one
// enrollment year, for the semester refresh pass.
func (r *StudentRepository) ListActive(ctx context.Context, enrollmentYear *int) ([]models.Student, error) {
	query := `SELECT id, user_id, student_id, enrollment_year, current_semester, course, branch, batch, cgpa, active, created_at, updated_at
FROM students WHERE active = TRUE`
	var args []interface{}
	if enrollmentYear != nil {
		query += " AND enrollment_year = $1"
		args = append(args, *enrollmentYear)
	}
	query += " ORDER BY student_id ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// UpdateSemester sets the stored semester for one student.
func (r *StudentRepository) UpdateSemester(ctx context.Context, id string, semester int) error {
	const query = `UPDATE students SET current_semester = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, semester, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student semester: %w", err)
	}
	return nil
}
