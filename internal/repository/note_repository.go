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

const noteColumns = `id, title, description, file_path, uploaded_by, subject, status, reviewer_id, review_comment, created_at, updated_at`

// NoteRepository provides database access for shared notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new instance of NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a note. New notes always start pending.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	now := time.Now().UTC()
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	note.Status = models.NotePending
	note.CreatedAt = now
	note.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO notes (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, noteColumns)
	if _, err := r.db.ExecContext(ctx, query,
		note.ID, note.Title, note.Description, note.FilePath, note.UploadedBy, note.Subject,
		note.Status, note.ReviewerID, note.ReviewComment, note.CreatedAt, note.UpdatedAt); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// FindByID returns a note by identifier.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE id = $1 LIMIT 1`, noteColumns)
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find note by id: %w", err)
	}
	return &note, nil
}

// List returns notes based on the visibility filter with total count.
// ApprovedOnly with OwnerStudentID set expands to approved-or-own, which is
// the student view; ApprovedOnly alone is the public view.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error) {
	baseQuery := `FROM notes WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ApprovedOnly {
		if filter.OwnerStudentID != "" {
			conditions = append(conditions, fmt.Sprintf("(status = 'approved' OR uploaded_by = $%d)", len(args)+1))
			args = append(args, filter.OwnerStudentID)
		} else {
			conditions = append(conditions, "status = 'approved'")
		}
	} else if filter.OwnerStudentID != "" {
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)+1))
		args = append(args, filter.OwnerStudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR subject ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"title":      "title",
		"subject":    "subject",
		"created_at": "created_at",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, noteColumns, whereClause, column, order, size, offset)
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}
	return notes, total, nil
}

// Update persists the owner-editable fields of a note.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notes SET title = $2, description = $3, subject = $4, file_path = $5, status = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		note.ID, note.Title, note.Description, note.Subject, note.FilePath, note.Status, note.UpdatedAt); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Review records a review verdict on a pending note.
func (r *NoteRepository) Review(ctx context.Context, id string, status models.NoteStatus, reviewerID string, comment *string) error {
	const query = `UPDATE notes SET status = $2, reviewer_id = $3, review_comment = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comment, time.Now().UTC()); err != nil {
		return fmt.Errorf("review note: %w", err)
	}
	return nil
}

// Delete removes a note.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
