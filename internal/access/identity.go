// Package access implements the role-scoped access policy: who may act on
// which records, and which rows of a collection a caller may see. All
// predicates are pure; services resolve grants and ownership references
// from the database and pass them in.
package access

import "github.com/eesa/eesa-api/internal/models"

// ProfileKind discriminates the profile attached to an identity.
type ProfileKind int

const (
	ProfileNone ProfileKind = iota
	ProfileStudent
	ProfileFaculty
)

// Profile is the explicit sum of the three profile states. It replaces
// attribute probing on the user object: a student identity carries its
// student profile id and batch, a faculty identity its faculty profile id.
type Profile struct {
	Kind      ProfileKind
	StudentID string
	Batch     string
	FacultyID string
}

// StudentProfile builds a student profile reference.
func StudentProfile(studentID, batch string) Profile {
	return Profile{Kind: ProfileStudent, StudentID: studentID, Batch: batch}
}

// FacultyProfile builds a faculty profile reference.
func FacultyProfile(facultyID string) Profile {
	return Profile{Kind: ProfileFaculty, FacultyID: facultyID}
}

// Identity is the authenticated caller as seen by the policy. The zero
// value is an unauthenticated caller.
type Identity struct {
	UserID  string
	Role    models.UserRole
	Profile Profile
}

// Anonymous is the unauthenticated identity.
var Anonymous = Identity{}

// Authenticated reports whether the identity belongs to a logged-in user.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// Consistent reports whether the identity's profile matches its declared
// role. Admins need no profile. An inconsistent identity is denied by the
// policy rather than treated as a server fault.
func (id Identity) Consistent() bool {
	switch id.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return id.Profile.Kind == ProfileStudent && id.Profile.StudentID != ""
	case models.RoleFaculty:
		return id.Profile.Kind == ProfileFaculty && id.Profile.FacultyID != ""
	default:
		return false
	}
}
