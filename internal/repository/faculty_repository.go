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

const facultyDetailColumns = `f.id, f.user_id, f.faculty_id, f.department, f.designation, f.joining_date, f.created_at, f.updated_at, u.username, u.email, u.first_name || ' ' || u.last_name AS full_name`

// FacultyRepository provides database access for faculty profiles.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new instance of FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// insertFacultyTx inserts a faculty profile inside an existing transaction.
func insertFacultyTx(ctx context.Context, tx *sqlx.Tx, faculty *models.Faculty) error {
	now := time.Now().UTC()
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	faculty.CreatedAt = now
	faculty.UpdatedAt = now

	const query = `INSERT INTO faculty (id, user_id, faculty_id, department, designation, joining_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query,
		faculty.ID, faculty.UserID, faculty.FacultyID, faculty.Department, faculty.Designation,
		faculty.JoiningDate, faculty.CreatedAt, faculty.UpdatedAt); err != nil {
		return conflictOr(err, "insert faculty profile")
	}
	return nil
}

// FindByID returns a faculty profile with user details.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.id = $1 LIMIT 1`, facultyDetailColumns)
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by id: %w", err)
	}
	return &faculty, nil
}

// FindByUserID returns the faculty profile owned by a user.
func (r *FacultyRepository) FindByUserID(ctx context.Context, userID string) (*models.FacultyDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM faculty f JOIN users u ON u.id = f.user_id WHERE f.user_id = $1 LIMIT 1`, facultyDetailColumns)
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by user id: %w", err)
	}
	return &faculty, nil
}

// List returns faculty profiles based on filters with total count.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error) {
	baseQuery := `FROM faculty f JOIN users u ON u.id = f.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("f.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("f.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(f.faculty_id ILIKE $%d OR u.first_name || ' ' || u.last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"faculty_id":   "f.faculty_id",
		"department":   "f.department",
		"joining_date": "f.joining_date",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "f.faculty_id"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, facultyDetailColumns, whereClause, column, order, size, offset)
	var faculty []models.FacultyDetail
	if err := r.db.SelectContext(ctx, &faculty, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return faculty, total, nil
}

// Update persists mutable faculty profile fields.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	faculty.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculty SET department = $2, designation = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		faculty.ID, faculty.Department, faculty.Designation, faculty.UpdatedAt); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}
