package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type eventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	FindEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, page, pageSize int) ([]models.Event, int, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	CreateProject(ctx context.Context, project *models.Project) error
	FindProjectByID(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, page, pageSize int) ([]models.Project, int, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id string) error
}

// EventRequest holds payload for creating or updating events.
type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	ImagePath   *string   `json:"image_path"`
}

// ProjectRequest holds payload for creating or updating showcased
// projects.
type ProjectRequest struct {
	Title        string   `json:"title" validate:"required"`
	Description  string   `json:"description"`
	ImagePath    *string  `json:"image_path"`
	GithubLink   *string  `json:"github_link" validate:"omitempty,url"`
	Contributors []string `json:"contributors"`
}

// EventService handles association events and the project showcase. Both
// listings are public; writes require an authenticated member.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the event service.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// ListEvents returns events, public.
func (s *EventService) ListEvents(ctx context.Context, page, pageSize int) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.ListEvents(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, paginationFor(page, pageSize, total), nil
}

// GetEvent returns one event, public.
func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// CreateEvent publishes an event.
func (s *EventService) CreateEvent(ctx context.Context, caller access.Identity, req EventRequest) (*models.Event, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindEvent}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	organizer := caller.UserID
	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		ImagePath:   req.ImagePath,
		OrganizerID: &organizer,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// UpdateEvent modifies an event.
func (s *EventService) UpdateEvent(ctx context.Context, caller access.Identity, id string, req EventRequest) (*models.Event, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionUpdate, Kind: access.KindEvent}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Date = req.Date
	event.Location = req.Location
	if req.ImagePath != nil {
		event.ImagePath = req.ImagePath
	}

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// DeleteEvent removes an event. Admin only.
func (s *EventService) DeleteEvent(ctx context.Context, caller access.Identity, id string) error {
	if err := access.Authorize(caller, access.Request{Action: access.ActionDelete, Kind: access.KindEvent}); err != nil {
		return err
	}
	if caller.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins delete events")
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

// ListProjects returns showcased projects, public.
func (s *EventService) ListProjects(ctx context.Context, page, pageSize int) ([]models.Project, *models.Pagination, error) {
	projects, total, err := s.repo.ListProjects(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	return projects, paginationFor(page, pageSize, total), nil
}

// GetProject returns one project, public.
func (s *EventService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

// CreateProject showcases a project.
func (s *EventService) CreateProject(ctx context.Context, caller access.Identity, req ProjectRequest) (*models.Project, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionCreate, Kind: access.KindEvent}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	project := &models.Project{
		Title:        req.Title,
		Description:  req.Description,
		ImagePath:    req.ImagePath,
		GithubLink:   req.GithubLink,
		Contributors: req.Contributors,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// UpdateProject modifies a showcased project.
func (s *EventService) UpdateProject(ctx context.Context, caller access.Identity, id string, req ProjectRequest) (*models.Project, error) {
	if err := access.Authorize(caller, access.Request{Action: access.ActionUpdate, Kind: access.KindEvent}); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Title = req.Title
	project.Description = req.Description
	if req.ImagePath != nil {
		project.ImagePath = req.ImagePath
	}
	project.GithubLink = req.GithubLink
	project.Contributors = req.Contributors

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	return project, nil
}

// DeleteProject removes a showcased project. Admin only.
func (s *EventService) DeleteProject(ctx context.Context, caller access.Identity, id string) error {
	if err := access.Authorize(caller, access.Request{Action: access.ActionDelete, Kind: access.KindEvent}); err != nil {
		return err
	}
	if caller.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins delete projects")
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}
	return nil
}
