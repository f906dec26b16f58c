package access

import "github.com/eesa/eesa-api/internal/models"

// Scope is the visibility constraint repositories apply to a listing.
// Exactly one of All/None is decisive; otherwise the set fields restrict
// rows to the caller's own records or batch.
type Scope struct {
	All       bool
	None      bool
	StudentID string
	FacultyID string
	Batch     string
}

// Empty reports whether the scope yields no rows.
func (s Scope) Empty() bool {
	return s.None
}

// ScopeFor returns the subset of a collection the caller may see.
// Unauthenticated and inconsistent callers receive the empty scope, never
// an error.
func ScopeFor(caller Identity, kind Kind) Scope {
	if !caller.Authenticated() || !caller.Consistent() {
		return Scope{None: true}
	}
	if caller.Role == models.RoleAdmin {
		return Scope{All: true}
	}

	switch caller.Role {
	case models.RoleFaculty:
		return facultyScope(caller, kind)
	case models.RoleStudent:
		return studentScope(caller, kind)
	default:
		return Scope{None: true}
	}
}

func facultyScope(caller Identity, kind Kind) Scope {
	fid := caller.Profile.FacultyID
	switch kind {
	case KindAttendance, KindInternalMark, KindAssignment, KindStudyMaterial, KindFacultySubject:
		return Scope{FacultyID: fid}
	case KindSubmission:
		// Submissions to assignments the faculty authored.
		return Scope{FacultyID: fid}
	case KindFaculty:
		return Scope{FacultyID: fid}
	case KindStudent, KindSubject, KindNote, KindEvent, KindUser:
		return Scope{All: true}
	default:
		return Scope{None: true}
	}
}

func studentScope(caller Identity, kind Kind) Scope {
	sid := caller.Profile.StudentID
	batch := caller.Profile.Batch
	switch kind {
	case KindAttendance, KindInternalMark, KindSubmission:
		return Scope{StudentID: sid}
	case KindFacultySubject, KindAssignment, KindStudyMaterial:
		return Scope{Batch: batch}
	case KindStudent:
		return Scope{StudentID: sid}
	case KindSubject, KindFaculty, KindNote, KindEvent:
		return Scope{All: true}
	default:
		return Scope{None: true}
	}
}

// NoteVisibility resolves the note-listing rule, which is the one
// collection with public rows. Approved notes are visible to everyone; a
// student additionally sees their own notes of any status; faculty and
// admin see everything. The optional status filter narrows but never
// widens: a student asking for another owner's pending notes still only
// receives their own.
func NoteVisibility(caller Identity, status *models.NoteStatus) models.NoteFilter {
	filter := models.NoteFilter{Status: status}

	if caller.Authenticated() && caller.Consistent() {
		switch caller.Role {
		case models.RoleAdmin, models.RoleFaculty:
			return filter
		case models.RoleStudent:
			filter.ApprovedOnly = true
			filter.OwnerStudentID = caller.Profile.StudentID
			return filter
		}
	}

	filter.ApprovedOnly = true
	return filter
}
