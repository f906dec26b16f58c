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

const attendanceRecordColumns = `a.id, a.student_id, a.subject_id, a.faculty_id, a.date, a.hour, a.present, a.created_at, a.updated_at,
u.first_name || ' ' || u.last_name AS student_name, sub.code AS subject_code, sub.name AS subject_name`

// AttendanceRepository provides database access for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes one attendance row keyed by (student, subject, date, hour).
// A second write for the same key overwrites present, so replayed batches
// converge instead of erroring. Returns true when the row was created.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (bool, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	const query = `INSERT INTO attendance (id, student_id, subject_id, faculty_id, date, hour, present, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (student_id, subject_id, date, hour)
DO UPDATE SET present = EXCLUDED.present, faculty_id = EXCLUDED.faculty_id, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at, (xmax = 0) AS created`

	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		Created   bool      `db:"created"`
	}
	if err := r.db.GetContext(ctx, &row, query,
		record.ID, record.StudentID, record.SubjectID, record.FacultyID,
		record.Date, record.Hour, record.Present, now); err != nil {
		return false, fmt.Errorf("upsert attendance: %w", err)
	}

	record.ID = row.ID
	record.CreatedAt = row.CreatedAt
	record.UpdatedAt = row.UpdatedAt
	return row.Created, nil
}

// FindByID returns one attendance row.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	const query = `SELECT id, student_id, subject_id, faculty_id, date, hour, present, created_at, updated_at FROM attendance WHERE id = $1 LIMIT 1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance by id: %w", err)
	}
	return &record, nil
}

// List returns attendance records based on filters with total count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	baseQuery := `FROM attendance a
JOIN students s ON s.id = a.student_id
JOIN users u ON u.id = s.user_id
JOIN subjects sub ON sub.id = a.subject_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("a.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Hour != nil {
		conditions = append(conditions, fmt.Sprintf("a.hour = $%d", len(args)+1))
		args = append(args, *filter.Hour)
	}

	whereClause := baseQuery
	if len(conditions) > 0 {
		whereClause += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSort := map[string]string{
		"date":       "a.date",
		"hour":       "a.hour",
		"created_at": "a.created_at",
	}
	column, ok := allowedSort[filter.SortBy]
	if !ok {
		column = "a.date"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, a.hour ASC LIMIT %d OFFSET %d`, attendanceRecordColumns, whereClause, column, order, size, offset)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// SummaryByStudent aggregates presence per subject for one student.
func (r *AttendanceRepository) SummaryByStudent(ctx context.Context, studentID string) ([]models.AttendanceSummary, error) {
	const query = `SELECT subject_id, COUNT(*) AS total, COUNT(*) FILTER (WHERE present) AS present
FROM attendance WHERE student_id = $1 GROUP BY subject_id ORDER BY subject_id`
	var summaries []models.AttendanceSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	for i := range summaries {
		if summaries[i].Total > 0 {
			summaries[i].Percent = float64(summaries[i].Present) / float64(summaries[i].Total) * 100
		}
	}
	return summaries, nil
}

// Update rewrites the present flag of one record.
func (r *AttendanceRepository) Update(ctx context.Context, id string, present bool) error {
	const query = `UPDATE attendance SET present = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, present, time.Now().UTC()); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// Delete removes one attendance record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
