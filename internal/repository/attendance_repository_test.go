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

func TestAttendanceRepositoryUpsertCreates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO attendance (.+) ON CONFLICT \\(student_id, subject_id, date, hour\\)").
		WithArgs(sqlmock.AnyArg(), "stu-1", "sub-1", "fac-1", sqlmock.AnyArg(), 3, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "created"}).
			AddRow("att-1", now, now, true))

	record := &models.Attendance{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		FacultyID: "fac-1",
		Date:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Hour:      3,
		Present:   true,
	}
	created, err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "att-1", record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertOverwrites(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO attendance (.+) ON CONFLICT \\(student_id, subject_id, date, hour\\)").
		WithArgs(sqlmock.AnyArg(), "stu-1", "sub-1", "fac-1", sqlmock.AnyArg(), 3, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "created"}).
			AddRow("att-1", now.Add(-time.Hour), now, false))

	record := &models.Attendance{
		StudentID: "stu-1",
		SubjectID: "sub-1",
		FacultyID: "fac-1",
		Date:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Hour:      3,
		Present:   false,
	}
	created, err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, created, "replayed write should update the existing row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListScopedToStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "subject_id", "faculty_id", "date", "hour", "present", "created_at", "updated_at", "student_name", "subject_code", "subject_name"}).
		AddRow("att-1", "stu-1", "sub-1", "fac-1", time.Now(), 1, true, time.Now(), time.Now(), "Asha Nair", "CS301", "Operating Systems")
	mock.ExpectQuery("SELECT (.+) FROM attendance a").
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM attendance a").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "CS301", records[0].SubjectCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"subject_id", "total", "present"}).
		AddRow("sub-1", 40, 30).
		AddRow("sub-2", 10, 10)
	mock.ExpectQuery("SELECT subject_id, COUNT\\(\\*\\) AS total").
		WithArgs("stu-1").
		WillReturnRows(rows)

	summaries, err := repo.SummaryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.InDelta(t, 75.0, summaries[0].Percent, 0.01)
	assert.InDelta(t, 100.0, summaries[1].Percent, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}
