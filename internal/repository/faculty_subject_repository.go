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

const grantDetailColumns = `fs.id, fs.faculty_id, fs.subject_id, fs.batch, fs.created_at,
u.first_name || ' ' || u.last_name AS faculty_name, sub.code AS subject_code, sub.name AS subject_name`

// FacultySubjectRepository provides database access for teaching grants.
type FacultySubjectRepository struct {
	db *sqlx.DB
}

// NewFacultySubjectRepository creates a new instance of
// FacultySubjectRepository.
func NewFacultySubjectRepository(db *sqlx.DB) *FacultySubjectRepository {
	return &FacultySubjectRepository{db: db}
}

// Create inserts a teaching grant.
func (r *FacultySubjectRepository) Create(ctx context.Context, grant *models.FacultySubject) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	grant.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO faculty_subjects (id, faculty_id, subject_id, batch, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.FacultyID, grant.SubjectID, grant.Batch, grant.CreatedAt); err != nil {
		return conflictOr(err, "insert teaching grant")
	}
	return nil
}

// FindByID returns a grant by identifier.
func (r *FacultySubjectRepository) FindByID(ctx context.Context, id string) (*models.FacultySubject, error) {
	const query = `SELECT id, faculty_id, subject_id, batch, created_at FROM faculty_subjects WHERE id = $1 LIMIT 1`
	var grant models.FacultySubject
	if err := r.db.GetContext(ctx, &grant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teaching grant: %w", err)
	}
	return &grant, nil
}

// Exists reports whether a faculty holds a grant for a subject in any
// batch. This is the predicate attendance and mark writes check.
func (r *FacultySubjectRepository) Exists(ctx context.Context, facultyID, subjectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM faculty_subjects WHERE faculty_id = $1 AND subject_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, facultyID, subjectID); err != nil {
		return false, fmt.Errorf("check teaching grant: %w", err)
	}
	return exists, nil
}

// List returns grants with display metadata based on filters.
func (r *FacultySubjectRepository) List(ctx context.Context, filter models.FacultySubjectFilter) ([]models.FacultySubjectDetail, int, error) {
	baseQuery := `FROM faculty_subjects fs
JOIN faculty f ON f.id = fs.faculty_id
JOIN users u ON u.id = f.user_id
JOIN subjects sub ON sub.id = fs.subject_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("fs.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("fs.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Batch != "" {
		conditions = append(conditions, fmt.Sprintf("fs.batch = $%d", len(args)+1))
		args = append(args, filter.Batch)
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY sub.code ASC, fs.batch ASC LIMIT %d OFFSET %d`, grantDetailColumns, whereClause, size, offset)
	var grants []models.FacultySubjectDetail
	if err := r.db.SelectContext(ctx, &grants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teaching grants: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teaching grants: %w", err)
	}
	return grants, total, nil
}

// Delete removes a teaching grant.
func (r *FacultySubjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM faculty_subjects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete teaching grant: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
