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

const materialColumns = `id, title, description, subject_id, faculty_id, batch, file_path, created_at, updated_at`

// MaterialRepository provides database access for study materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository creates a new instance of MaterialRepository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Create inserts a study material.
func (r *MaterialRepository) Create(ctx context.Context, material *models.StudyMaterial) error {
	now := time.Now().UTC()
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	material.CreatedAt = now
	material.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO study_materials (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, materialColumns)
	if _, err := r.db.ExecContext(ctx, query,
		material.ID, material.Title, material.Description, material.SubjectID, material.FacultyID,
		material.Batch, material.FilePath, material.CreatedAt, material.UpdatedAt); err != nil {
		return fmt.Errorf("insert study material: %w", err)
	}
	return nil
}

// FindByID returns a study material by identifier.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.StudyMaterial, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_materials WHERE id = $1 LIMIT 1`, materialColumns)
	var material models.StudyMaterial
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find study material by id: %w", err)
	}
	return &material, nil
}

// List returns study materials based on filters with total count.
func (r *MaterialRepository) List(ctx context.Context, filter models.StudyMaterialFilter) ([]models.StudyMaterial, int, error) {
	baseQuery := `FROM study_materials WHERE 1=1`
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

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, materialColumns, whereClause, size, offset)
	var materials []models.StudyMaterial
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list study materials: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count study materials: %w", err)
	}
	return materials, total, nil
}

// Update persists mutable study material fields.
func (r *MaterialRepository) Update(ctx context.Context, material *models.StudyMaterial) error {
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE study_materials SET title = $2, description = $3, file_path = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		material.ID, material.Title, material.Description, material.FilePath, material.UpdatedAt); err != nil {
		return fmt.Errorf("update study material: %w", err)
	}
	return nil
}

// Delete removes a study material.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM study_materials WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete study material: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
