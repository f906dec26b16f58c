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

const assignmentColumns = `id, title, description, subject_id, faculty_id, batch, due_date, file_path, created_at, updated_at`

// AssignmentRepository provides database access for assignments and their
// submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	now := time.Now().UTC()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO assignments (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, assignmentColumns)
	if _, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.Title, assignment.Description, assignment.SubjectID, assignment.FacultyID,
		assignment.Batch, assignment.DueDate, assignment.FilePath, assignment.CreatedAt, assignment.UpdatedAt); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 LIMIT 1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// List returns assignments based on filters with total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	baseQuery := `FROM assignments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Batch != "" {
		conditions = append(conditions, fmt.Sprintf("batch = $%d", len(args)+1))
		args = append(args, filter.Batch)
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"due_date":   "due_date",
		"created_at": "created_at",
		"title":      "title",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, assignmentColumns, whereClause, column, order, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// Update persists mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = $2, description = $3, due_date = $4, file_path = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.Title, assignment.Description, assignment.DueDate, assignment.FilePath, assignment.UpdatedAt); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const submissionColumns = `sub.id, sub.assignment_id, sub.student_id, sub.file_path, sub.status, sub.comments, sub.submitted_at, sub.updated_at`

// UpsertSubmission writes a student's submission keyed by
// (assignment, student), so resubmitting replaces the previous file.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, submission *models.AssignmentSubmission) error {
	now := time.Now().UTC()
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	submission.SubmittedAt = now
	submission.UpdatedAt = now

	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, file_path, status, comments, submitted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (assignment_id, student_id)
DO UPDATE SET file_path = EXCLUDED.file_path, status = EXCLUDED.status, comments = EXCLUDED.comments, submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
RETURNING id`
	if err := r.db.GetContext(ctx, &submission.ID, query,
		submission.ID, submission.AssignmentID, submission.StudentID, submission.FilePath,
		submission.Status, submission.Comments, now); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindSubmissionByID returns one submission.
func (r *AssignmentRepository) FindSubmissionByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_submissions sub WHERE sub.id = $1 LIMIT 1`, submissionColumns)
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &submission, nil
}

// ListSubmissions returns submissions based on filters with total count.
// AssignmentFacultyID joins through assignments so faculty only see answers
// to their own assignments.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]models.AssignmentSubmission, int, error) {
	baseQuery := `FROM assignment_submissions sub JOIN assignments a ON a.id = sub.assignment_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("sub.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AssignmentFacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("a.faculty_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentFacultyID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("sub.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY sub.submitted_at DESC LIMIT %d OFFSET %d`, submissionColumns, whereClause, size, offset)
	var submissions []models.AssignmentSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// ReviewSubmission sets the review status and comments of one submission.
func (r *AssignmentRepository) ReviewSubmission(ctx context.Context, id string, status models.SubmissionStatus, comments *string) error {
	const query = `UPDATE assignment_submissions SET status = $2, comments = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, comments, time.Now().UTC()); err != nil {
		return fmt.Errorf("review submission: %w", err)
	}
	return nil
}

// DeleteSubmission removes one submission.
func (r *AssignmentRepository) DeleteSubmission(ctx context.Context, id string) error {
	const query = `DELETE FROM assignment_submissions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
