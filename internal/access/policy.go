package access

import (
	"github.com/eesa/eesa-api/internal/models"
	appErrors "github.com/eesa/eesa-api/pkg/errors"
)

// Action enumerates what a caller wants to do with a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionReview Action = "review"
)

// Kind enumerates the protected resource kinds.
type Kind string

const (
	KindUser           Kind = "user"
	KindStudent        Kind = "student"
	KindFaculty        Kind = "faculty"
	KindSubject        Kind = "subject"
	KindFacultySubject Kind = "faculty_subject"
	KindAttendance     Kind = "attendance"
	KindInternalMark   Kind = "internal_mark"
	KindAssignment     Kind = "assignment"
	KindSubmission     Kind = "submission"
	KindStudyMaterial  Kind = "study_material"
	KindNote           Kind = "note"
	KindEvent          Kind = "event"
)

// Owner carries the ownership references of a target record. Zero fields
// mean the record has no such reference (or the action has no target yet,
// as with create).
type Owner struct {
	UserID    string // users.user reference
	StudentID string // student profile reference (uploaded_by / student)
	FacultyID string // recording or authoring faculty reference
}

// Request describes one authorization decision.
type Request struct {
	Action Action
	Kind   Kind
	Owner  Owner
	// HasGrant reports whether the calling faculty holds a FacultySubject
	// grant for the target subject. Services resolve it before asking for
	// attendance or mark writes.
	HasGrant bool
}

// Authorize decides whether the caller may perform the request. It returns
// nil on allow and a typed error on deny. Authorization never mutates
// state, so a denial is always side-effect free.
func Authorize(caller Identity, req Request) error {
	if !caller.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if !caller.Consistent() {
		return appErrors.Clone(appErrors.ErrDataInconsistency, "")
	}

	// Admin overrides every rule below.
	if caller.Role == models.RoleAdmin {
		return nil
	}

	switch caller.Role {
	case models.RoleFaculty:
		return authorizeFaculty(caller, req)
	case models.RoleStudent:
		return authorizeStudent(caller, req)
	default:
		return appErrors.ErrForbidden
	}
}

func authorizeFaculty(caller Identity, req Request) error {
	if req.Action == ActionRead {
		return nil
	}
	switch req.Kind {
	case KindAttendance, KindInternalMark:
		// Writes require a teaching grant for the subject; updates and
		// deletes additionally require the caller to be the recorder.
		if !req.HasGrant {
			return appErrors.Clone(appErrors.ErrForbidden, "no teaching grant for this subject")
		}
		if req.Action == ActionCreate || req.Owner.FacultyID == caller.Profile.FacultyID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "record belongs to another faculty")
	case KindAssignment, KindStudyMaterial:
		if req.Action == ActionCreate || req.Owner.FacultyID == caller.Profile.FacultyID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another faculty")
	case KindNote:
		if req.Action == ActionReview || req.Action == ActionUpdate || req.Action == ActionDelete {
			return nil
		}
		return appErrors.ErrForbidden
	case KindSubmission:
		// Reviewing a submission's status is a faculty action.
		if req.Action == ActionReview {
			return nil
		}
		return appErrors.ErrForbidden
	case KindEvent:
		return nil
	default:
		return appErrors.ErrForbidden
	}
}

func authorizeStudent(caller Identity, req Request) error {
	if req.Action == ActionRead {
		return nil
	}
	self := caller.Profile.StudentID
	switch req.Kind {
	case KindNote:
		switch req.Action {
		case ActionCreate:
			return nil
		case ActionUpdate, ActionDelete:
			if req.Owner.StudentID == self {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not the owner of this note")
	case KindSubmission:
		switch req.Action {
		case ActionCreate:
			return nil
		case ActionUpdate, ActionDelete:
			if req.Owner.StudentID == self {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not the owner of this submission")
	case KindStudent, KindUser:
		if req.Action == ActionUpdate && (req.Owner.StudentID == self || req.Owner.UserID == caller.UserID) {
			return nil
		}
		return appErrors.ErrForbidden
	case KindEvent:
		return nil
	default:
		return appErrors.ErrForbidden
	}
}
