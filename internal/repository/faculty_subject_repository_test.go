package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

var pqUniqueViolation = pq.Error{Code: "23505"}

func TestFacultySubjectRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultySubjectRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("fac-1", "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "fac-1", "sub-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacultySubjectRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFacultySubjectRepository(db)

	mock.ExpectExec("INSERT INTO faculty_subjects").
		WithArgs(sqlmock.AnyArg(), "fac-1", "sub-1", "2022-2026", sqlmock.AnyArg()).
		WillReturnError(&pqUniqueViolation)

	err := repo.Create(context.Background(), &models.FacultySubject{FacultyID: "fac-1", SubjectID: "sub-1", Batch: "2022-2026"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
