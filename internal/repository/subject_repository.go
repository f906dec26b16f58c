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

const subjectColumns = `id, code, name, semester, description, created_at, updated_at`

// SubjectRepository provides database access for subjects and teaching
// grants.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new instance of SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO subjects (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`, subjectColumns)
	if _, err := r.db.ExecContext(ctx, query,
		subject.ID, subject.Code, subject.Name, subject.Semester, subject.Description, subject.CreatedAt, subject.UpdatedAt); err != nil {
		return conflictOr(err, "insert subject")
	}
	return nil
}

// FindByID returns a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE id = $1 LIMIT 1`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// FindByCode returns a subject by its unique code.
func (r *SubjectRepository) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE code = $1 LIMIT 1`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by code: %w", err)
	}
	return &subject, nil
}

// List returns subjects based on filters with total count.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	baseQuery := `FROM subjects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Semester != nil {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, *filter.Semester)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"code":     "code",
		"name":     "name",
		"semester": "semester",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "semester"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, code ASC LIMIT %d OFFSET %d`, subjectColumns, whereClause, column, order, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// Update persists mutable subject fields.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = $2, semester = $3, description = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		subject.ID, subject.Name, subject.Semester, subject.Description, subject.UpdatedAt); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM subjects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
