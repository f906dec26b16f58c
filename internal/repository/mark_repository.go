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

const markRecordColumns = `m.id, m.student_id, m.subject_id, m.faculty_id, m.test_name, m.max_mark, m.obtained_mark, m.remarks, m.created_at, m.updated_at,
u.first_name || ' ' || u.last_name AS student_name, sub.code AS subject_code, sub.name AS subject_name`

// MarkRepository provides database access for internal marks.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new instance of MarkRepository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Upsert writes one mark row keyed by (student, subject, test_name).
// Replayed batches overwrite the score rather than erroring. Returns true
// when the row was created.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.InternalMark) (bool, error) {
	now := time.Now().UTC()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}

	const query = `INSERT INTO internal_marks (id, student_id, subject_id, faculty_id, test_name, max_mark, obtained_mark, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (student_id, subject_id, test_name)
DO UPDATE SET max_mark = EXCLUDED.max_mark, obtained_mark = EXCLUDED.obtained_mark, remarks = EXCLUDED.remarks, faculty_id = EXCLUDED.faculty_id, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at, (xmax = 0) AS created`

	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		Created   bool      `db:"created"`
	}
	if err := r.db.GetContext(ctx, &row, query,
		mark.ID, mark.StudentID, mark.SubjectID, mark.FacultyID,
		mark.TestName, mark.MaxMark, mark.ObtainedMark, mark.Remarks, now); err != nil {
		return false, fmt.Errorf("upsert internal mark: %w", err)
	}

	mark.ID = row.ID
	mark.CreatedAt = row.CreatedAt
	mark.UpdatedAt = row.UpdatedAt
	return row.Created, nil
}

// FindByID returns one mark row.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.InternalMark, error) {
	const query = `SELECT id, student_id, subject_id, faculty_id, test_name, max_mark, obtained_mark, remarks, created_at, updated_at FROM internal_marks WHERE id = $1 LIMIT 1`
	var mark models.InternalMark
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find internal mark by id: %w", err)
	}
	return &mark, nil
}

// List returns mark records based on filters with total count.
func (r *MarkRepository) List(ctx context.Context, filter models.InternalMarkFilter) ([]models.InternalMarkRecord, int, error) {
	baseQuery := `FROM internal_marks m
JOIN students s ON s.id = m.student_id
JOIN users u ON u.id = s.user_id
JOIN subjects sub ON sub.id = m.subject_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("m.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("m.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("m.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.TestName != "" {
		conditions = append(conditions, fmt.Sprintf("m.test_name = $%d", len(args)+1))
		args = append(args, filter.TestName)
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"test_name":     "m.test_name",
		"obtained_mark": "m.obtained_mark",
		"created_at":    "m.created_at",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "m.created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, markRecordColumns, whereClause, column, order, size, offset)
	var marks []models.InternalMarkRecord
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list internal marks: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count internal marks: %w", err)
	}
	return marks, total, nil
}

// ReportRows returns every mark for one subject and test, ordered by roll
// number, for the PDF report.
func (r *MarkRepository) ReportRows(ctx context.Context, subjectID, testName string) ([]models.InternalMarkRecord, error) {
	query := fmt.Sprintf(`SELECT %s, s.student_id AS roll_number FROM internal_marks m
JOIN students s ON s.id = m.student_id
JOIN users u ON u.id = s.user_id
JOIN subjects sub ON sub.id = m.subject_id
WHERE m.subject_id = $1 AND m.test_name = $2
ORDER BY s.student_id ASC`, markRecordColumns)
	var marks []models.InternalMarkRecord
	if err := r.db.SelectContext(ctx, &marks, query, subjectID, testName); err != nil {
		return nil, fmt.Errorf("mark report rows: %w", err)
	}
	return marks, nil
}

// Update rewrites the score fields of one record.
func (r *MarkRepository) Update(ctx context.Context, mark *models.InternalMark) error {
	mark.UpdatedAt = time.Now().UTC()
	const query = `UPDATE internal_marks SET max_mark = $2, obtained_mark = $3, remarks = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		mark.ID, mark.MaxMark, mark.ObtainedMark, mark.Remarks, mark.UpdatedAt); err != nil {
		return fmt.Errorf("update internal mark: %w", err)
	}
	return nil
}

// Delete removes one mark record.
func (r *MarkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM internal_marks WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete internal mark: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
