package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

type mockNoteRepo struct {
	notes      map[string]models.Note
	lastFilter models.NoteFilter
	listCalls  int
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if m.notes == nil {
		m.notes = make(map[string]models.Note)
	}
	note.ID = fmt.Sprintf("note-%d", len(m.notes)+1)
	note.Status = models.NotePending
	m.notes[note.ID] = *note
	return nil
}

func (m *mockNoteRepo) FindByID(ctx context.Context, id string) (*models.Note, error) {
	if n, ok := m.notes[id]; ok {
		note := n
		return &note, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoteRepo) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error) {
	m.lastFilter = filter
	m.listCalls++
	var visible []models.Note
	for _, n := range m.notes {
		if filter.ApprovedOnly && n.Status != models.NoteApproved && n.UploadedBy != filter.OwnerStudentID {
			continue
		}
		visible = append(visible, n)
	}
	return visible, len(visible), nil
}

func (m *mockNoteRepo) Update(ctx context.Context, note *models.Note) error {
	m.notes[note.ID] = *note
	return nil
}

func (m *mockNoteRepo) Review(ctx context.Context, id string, status models.NoteStatus, reviewerID string, comment *string) error {
	n, ok := m.notes[id]
	if !ok {
		return sql.ErrNoRows
	}
	n.Status = status
	n.ReviewerID = &reviewerID
	n.ReviewComment = comment
	m.notes[id] = n
	return nil
}

func (m *mockNoteRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.notes, id)
	return nil
}

type mockNoteCache struct {
	store   map[string][]byte
	deleted []string
}

func (m *mockNoteCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockNoteCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = nil
	return nil
}

func (m *mockNoteCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func TestNoteServiceCreateStartsPending(t *testing.T) {
	repo := &mockNoteRepo{}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	note, err := svc.Create(context.Background(), studentCaller("st-1", "2022-2026"), CreateNoteRequest{
		Title:    "Paging notes",
		Subject:  "Operating Systems",
		FilePath: "/uploads/notes/paging.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotePending, note.Status)
	assert.Equal(t, "st-1", note.UploadedBy)
}

func TestNoteServiceAnonymousListingIsApprovedOnly(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NoteApproved, UploadedBy: "st-1"},
		"note-2": {ID: "note-2", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	notes, _, err := svc.List(context.Background(), access.Anonymous, nil, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "note-1", notes[0].ID)
	assert.True(t, repo.lastFilter.ApprovedOnly)
	assert.Empty(t, repo.lastFilter.OwnerStudentID)
}

func TestNoteServiceOwnerSeesOwnPendingNotes(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NoteApproved, UploadedBy: "st-2"},
		"note-2": {ID: "note-2", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	notes, _, err := svc.List(context.Background(), studentCaller("st-1", "2022-2026"), nil, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
	assert.Equal(t, "st-1", repo.lastFilter.OwnerStudentID)
}

func TestNoteServiceGetHidesPendingFromStrangers(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), studentCaller("st-2", "2022-2026"), "note-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code,
		"hidden notes are reported as absent, not forbidden")

	note, err := svc.Get(context.Background(), studentCaller("st-1", "2022-2026"), "note-1")
	require.NoError(t, err)
	assert.Equal(t, "note-1", note.ID)
}

func TestNoteServiceReview(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	cache := &mockNoteCache{}
	svc := NewNoteService(repo, cache, 0, validator.New(), zap.NewNop())

	comment := "well structured"
	note, err := svc.Review(context.Background(), facultyCaller("fac-1"), "note-1", ReviewNoteRequest{
		Status:  models.NoteApproved,
		Comment: &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, models.NoteApproved, note.Status)
	require.NotNil(t, note.ReviewerID)
	assert.Equal(t, "user-fac-1", *note.ReviewerID)
	assert.Contains(t, cache.deleted, "notes:public:*", "public listing cache is invalidated on review")
}

func TestNoteServiceReviewRejectsPendingVerdict(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	_, err := svc.Review(context.Background(), facultyCaller("fac-1"), "note-1", ReviewNoteRequest{
		Status: models.NotePending,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestNoteServiceStudentsCannotReview(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Status: models.NotePending, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	_, err := svc.Review(context.Background(), studentCaller("st-1", "2022-2026"), "note-1", ReviewNoteRequest{
		Status: models.NoteApproved,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestNoteServiceUpdateResetsStatus(t *testing.T) {
	repo := &mockNoteRepo{notes: map[string]models.Note{
		"note-1": {ID: "note-1", Title: "Old", Subject: "OS", Status: models.NoteApproved, UploadedBy: "st-1"},
	}}
	svc := NewNoteService(repo, nil, 0, validator.New(), zap.NewNop())

	note, err := svc.Update(context.Background(), studentCaller("st-1", "2022-2026"), "note-1", UpdateNoteRequest{
		Title:   "Revised",
		Subject: "OS",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotePending, note.Status, "edits re-enter the review queue")

	_, err = svc.Update(context.Background(), studentCaller("st-2", "2022-2026"), "note-1", UpdateNoteRequest{
		Title:   "Hijack",
		Subject: "OS",
	})
	require.Error(t, err)
}
