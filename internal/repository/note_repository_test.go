package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eesa/eesa-api/internal/models"
)

func noteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "file_path", "uploaded_by", "subject", "status", "reviewer_id", "review_comment", "created_at", "updated_at"}).
		AddRow("n-1", "OS Unit 3", "Scheduling", "notes/os.pdf", "stu-1", "Operating Systems", models.NoteApproved, nil, nil, time.Now(), time.Now())
}

func TestNoteRepositoryListPublic(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM notes WHERE 1=1 AND status = 'approved' ORDER BY created_at DESC").
		WillReturnRows(noteRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notes WHERE 1=1 AND status = 'approved'").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notes, total, err := repo.List(context.Background(), models.NoteFilter{ApprovedOnly: true})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListApprovedOrOwn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM notes WHERE 1=1 AND \\(status = 'approved' OR uploaded_by = \\$1\\)").
		WithArgs("stu-1").
		WillReturnRows(noteRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notes WHERE 1=1 AND \\(status = 'approved' OR uploaded_by = \\$1\\)").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notes, total, err := repo.List(context.Background(), models.NoteFilter{ApprovedOnly: true, OwnerStudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryCreateStartsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectExec("INSERT INTO notes").
		WithArgs(sqlmock.AnyArg(), "OS Unit 3", "Scheduling", "notes/os.pdf", "stu-1", "Operating Systems",
			models.NotePending, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.Note{Title: "OS Unit 3", Description: "Scheduling", FilePath: "notes/os.pdf", UploadedBy: "stu-1", Subject: "Operating Systems", Status: models.NoteApproved}
	err := repo.Create(context.Background(), note)
	require.NoError(t, err)
	assert.Equal(t, models.NotePending, note.Status, "create must ignore a caller-supplied status")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryReview(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	comment := "good coverage"
	mock.ExpectExec("UPDATE notes SET status = \\$2, reviewer_id = \\$3").
		WithArgs("n-1", models.NoteApproved, "fac-1", &comment, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Review(context.Background(), "n-1", models.NoteApproved, "fac-1", &comment)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
