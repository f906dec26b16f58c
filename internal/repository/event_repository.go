package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eesa/eesa-api/internal/models"
)

const eventColumns = `id, title, description, date, location, image_path, organizer_id, created_at, updated_at`
const projectColumns = `id, title, description, image_path, github_link, created_at, updated_at`

// EventRepository provides database access for events and showcased
// projects.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts an event.
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO events (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, eventColumns)
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.Date, event.Location,
		event.ImagePath, event.OrganizerID, event.CreatedAt, event.UpdatedAt); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FindEventByID returns an event by identifier.
func (r *EventRepository) FindEventByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 LIMIT 1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// ListEvents returns events, upcoming first, with total count.
func (r *EventRepository) ListEvents(ctx context.Context, page, pageSize int) ([]models.Event, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY date DESC LIMIT %d OFFSET %d`, eventColumns, pageSize, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// UpdateEvent persists mutable event fields.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = $2, description = $3, date = $4, location = $5, image_path = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.Date, event.Location, event.ImagePath, event.UpdatedAt); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateProject inserts a project and its contributor links in one
// transaction.
func (r *EventRepository) CreateProject(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.CreatedAt = now
	project.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	query := fmt.Sprintf(`INSERT INTO projects (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`, projectColumns)
	if _, err := tx.ExecContext(ctx, query,
		project.ID, project.Title, project.Description, project.ImagePath,
		project.GithubLink, project.CreatedAt, project.UpdatedAt); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err := replaceContributorsTx(ctx, tx, project.ID, project.Contributors); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project create: %w", err)
	}
	committed = true
	return nil
}

// FindProjectByID returns a project with its contributors.
func (r *EventRepository) FindProjectByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	if err := r.db.SelectContext(ctx, &project.Contributors,
		`SELECT user_id FROM project_contributors WHERE project_id = $1 ORDER BY user_id`, id); err != nil {
		return nil, fmt.Errorf("load project contributors: %w", err)
	}
	return &project, nil
}

// ListProjects returns projects, newest first, with total count.
// Contributors are loaded per project; listings are small.
func (r *EventRepository) ListProjects(ctx context.Context, page, pageSize int) ([]models.Project, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM projects ORDER BY created_at DESC LIMIT %d OFFSET %d`, projectColumns, pageSize, offset)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	for i := range projects {
		if err := r.db.SelectContext(ctx, &projects[i].Contributors,
			`SELECT user_id FROM project_contributors WHERE project_id = $1 ORDER BY user_id`, projects[i].ID); err != nil {
			return nil, 0, fmt.Errorf("load project contributors: %w", err)
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects`); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProject persists mutable project fields and rewrites contributors.
func (r *EventRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const query = `UPDATE projects SET title = $2, description = $3, image_path = $4, github_link = $5, updated_at = $6 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query,
		project.ID, project.Title, project.Description, project.ImagePath, project.GithubLink, project.UpdatedAt); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_contributors WHERE project_id = $1`, project.ID); err != nil {
		return fmt.Errorf("clear project contributors: %w", err)
	}
	if err := replaceContributorsTx(ctx, tx, project.ID, project.Contributors); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project update: %w", err)
	}
	committed = true
	return nil
}

// DeleteProject removes a project; contributor links cascade.
func (r *EventRepository) DeleteProject(ctx context.Context, id string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func replaceContributorsTx(ctx context.Context, tx *sqlx.Tx, projectID string, contributors []string) error {
	for _, userID := range contributors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_contributors (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			projectID, userID); err != nil {
			return fmt.Errorf("insert project contributor: %w", err)
		}
	}
	return nil
}
