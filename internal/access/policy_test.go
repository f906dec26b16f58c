package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

var (
	admin   = Identity{UserID: "u-admin", Role: models.RoleAdmin}
	faculty = Identity{UserID: "u-fac", Role: models.RoleFaculty, Profile: FacultyProfile("fac-1")}
	student = Identity{UserID: "u-stu", Role: models.RoleStudent, Profile: StudentProfile("stu-1", "2022-2026")}
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, code, appErr.Code)
}

func TestAuthorizeAdminAllowsEverything(t *testing.T) {
	kinds := []Kind{KindUser, KindStudent, KindFaculty, KindSubject, KindFacultySubject,
		KindAttendance, KindInternalMark, KindAssignment, KindSubmission, KindStudyMaterial, KindNote, KindEvent}
	actions := []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionReview}
	for _, kind := range kinds {
		for _, action := range actions {
			assert.NoError(t, Authorize(admin, Request{Action: action, Kind: kind}),
				"admin should be allowed %s on %s", action, kind)
		}
	}
}

func TestAuthorizeAnonymousDenied(t *testing.T) {
	err := Authorize(Anonymous, Request{Action: ActionRead, Kind: KindSubject})
	assertCode(t, err, appErrors.ErrUnauthorized.Code)
}

func TestAuthorizeRoleWithoutProfileDenied(t *testing.T) {
	broken := Identity{UserID: "u-broken", Role: models.RoleStudent}
	err := Authorize(broken, Request{Action: ActionRead, Kind: KindSubject})
	assertCode(t, err, appErrors.ErrDataInconsistency.Code)

	brokenFaculty := Identity{UserID: "u-broken2", Role: models.RoleFaculty, Profile: StudentProfile("stu-9", "b")}
	err = Authorize(brokenFaculty, Request{Action: ActionCreate, Kind: KindAttendance, HasGrant: true})
	assertCode(t, err, appErrors.ErrDataInconsistency.Code)
}

func TestAuthorizeFacultyAttendanceRequiresGrant(t *testing.T) {
	err := Authorize(faculty, Request{Action: ActionCreate, Kind: KindAttendance})
	assertCode(t, err, appErrors.ErrForbidden.Code)

	assert.NoError(t, Authorize(faculty, Request{Action: ActionCreate, Kind: KindAttendance, HasGrant: true}))
	assert.NoError(t, Authorize(faculty, Request{Action: ActionCreate, Kind: KindInternalMark, HasGrant: true}))

	// Even with a grant, another faculty's record cannot be rewritten.
	err = Authorize(faculty, Request{
		Action:   ActionUpdate,
		Kind:     KindInternalMark,
		HasGrant: true,
		Owner:    Owner{FacultyID: "fac-2"},
	})
	assertCode(t, err, appErrors.ErrForbidden.Code)

	assert.NoError(t, Authorize(faculty, Request{
		Action:   ActionUpdate,
		Kind:     KindAttendance,
		HasGrant: true,
		Owner:    Owner{FacultyID: "fac-1"},
	}))
}

func TestAuthorizeFacultyOwnsAuthoredResources(t *testing.T) {
	assert.NoError(t, Authorize(faculty, Request{Action: ActionCreate, Kind: KindAssignment}))
	assert.NoError(t, Authorize(faculty, Request{Action: ActionUpdate, Kind: KindAssignment, Owner: Owner{FacultyID: "fac-1"}}))
	err := Authorize(faculty, Request{Action: ActionDelete, Kind: KindStudyMaterial, Owner: Owner{FacultyID: "fac-2"}})
	assertCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAuthorizeFacultyReviews(t *testing.T) {
	assert.NoError(t, Authorize(faculty, Request{Action: ActionReview, Kind: KindNote}))
	assert.NoError(t, Authorize(faculty, Request{Action: ActionReview, Kind: KindSubmission}))
	err := Authorize(student, Request{Action: ActionReview, Kind: KindNote})
	assertCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAuthorizeStudentOwnership(t *testing.T) {
	assert.NoError(t, Authorize(student, Request{Action: ActionCreate, Kind: KindNote}))
	assert.NoError(t, Authorize(student, Request{Action: ActionCreate, Kind: KindSubmission}))
	assert.NoError(t, Authorize(student, Request{Action: ActionUpdate, Kind: KindNote, Owner: Owner{StudentID: "stu-1"}}))
	assert.NoError(t, Authorize(student, Request{Action: ActionDelete, Kind: KindSubmission, Owner: Owner{StudentID: "stu-1"}}))

	err := Authorize(student, Request{Action: ActionUpdate, Kind: KindNote, Owner: Owner{StudentID: "stu-2"}})
	assertCode(t, err, appErrors.ErrForbidden.Code)

	err = Authorize(student, Request{Action: ActionCreate, Kind: KindAttendance})
	assertCode(t, err, appErrors.ErrForbidden.Code)

	err = Authorize(student, Request{Action: ActionCreate, Kind: KindSubject})
	assertCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAuthorizeStudentSelfUpdate(t *testing.T) {
	assert.NoError(t, Authorize(student, Request{Action: ActionUpdate, Kind: KindStudent, Owner: Owner{StudentID: "stu-1"}}))
	assert.NoError(t, Authorize(student, Request{Action: ActionUpdate, Kind: KindUser, Owner: Owner{UserID: "u-stu"}}))
	err := Authorize(student, Request{Action: ActionUpdate, Kind: KindStudent, Owner: Owner{StudentID: "stu-2"}})
	assertCode(t, err, appErrors.ErrForbidden.Code)
}
