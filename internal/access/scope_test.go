package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eesa/eesa-api/internal/models"
)

func TestScopeForAdminSeesAll(t *testing.T) {
	for _, kind := range []Kind{KindAttendance, KindInternalMark, KindAssignment, KindNote, KindFacultySubject} {
		scope := ScopeFor(admin, kind)
		assert.True(t, scope.All, "admin scope for %s", kind)
		assert.False(t, scope.Empty())
	}
}

func TestScopeForAnonymousIsEmpty(t *testing.T) {
	scope := ScopeFor(Anonymous, KindAttendance)
	assert.True(t, scope.Empty())
}

func TestScopeForInconsistentIdentityIsEmpty(t *testing.T) {
	broken := Identity{UserID: "u-x", Role: models.RoleFaculty}
	scope := ScopeFor(broken, KindAttendance)
	assert.True(t, scope.Empty())
}

func TestScopeForFaculty(t *testing.T) {
	scope := ScopeFor(faculty, KindAttendance)
	assert.Equal(t, "fac-1", scope.FacultyID)
	assert.False(t, scope.All)

	scope = ScopeFor(faculty, KindFacultySubject)
	assert.Equal(t, "fac-1", scope.FacultyID)

	scope = ScopeFor(faculty, KindStudent)
	assert.True(t, scope.All)
}

func TestScopeForStudent(t *testing.T) {
	scope := ScopeFor(student, KindAttendance)
	assert.Equal(t, "stu-1", scope.StudentID)
	assert.Empty(t, scope.Batch)

	scope = ScopeFor(student, KindAssignment)
	assert.Equal(t, "2022-2026", scope.Batch)
	assert.Empty(t, scope.StudentID)

	scope = ScopeFor(student, KindSubmission)
	assert.Equal(t, "stu-1", scope.StudentID)

	scope = ScopeFor(student, KindSubject)
	assert.True(t, scope.All)
}

func TestNoteVisibilityPublic(t *testing.T) {
	filter := NoteVisibility(Anonymous, nil)
	assert.True(t, filter.ApprovedOnly)
	assert.Empty(t, filter.OwnerStudentID)
}

func TestNoteVisibilityStudentSeesOwn(t *testing.T) {
	filter := NoteVisibility(student, nil)
	assert.True(t, filter.ApprovedOnly)
	assert.Equal(t, "stu-1", filter.OwnerStudentID)
}

func TestNoteVisibilityStatusNarrowsOnly(t *testing.T) {
	pending := models.NotePending
	filter := NoteVisibility(student, &pending)
	// The status filter combines with approved-or-own, so a student can
	// narrow to their own pending notes but never see someone else's.
	assert.True(t, filter.ApprovedOnly)
	assert.Equal(t, "stu-1", filter.OwnerStudentID)
	assert.Equal(t, &pending, filter.Status)
}

func TestNoteVisibilityFacultySeesAll(t *testing.T) {
	filter := NoteVisibility(faculty, nil)
	assert.False(t, filter.ApprovedOnly)
	assert.Empty(t, filter.OwnerStudentID)
}
