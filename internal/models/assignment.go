package models

import "time"

// SubmissionStatus tracks the review state of an assignment submission.
type SubmissionStatus string

const (
	SubmissionPending      SubmissionStatus = "pending"
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionNotSubmitted SubmissionStatus = "not_submitted"
	SubmissionRedo         SubmissionStatus = "redo"
)

// Valid returns true when the status is a supported value.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionSubmitted, SubmissionNotSubmitted, SubmissionRedo:
		return true
	default:
		return false
	}
}

// Assignment is authored by a faculty member for a subject and batch.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	Batch       string    `db:"batch" json:"batch"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter scopes assignment listings. FacultyID and Batch carry
// the caller's visibility scope.
type AssignmentFilter struct {
	SubjectID string
	FacultyID string
	Batch     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AssignmentSubmission is a student's answer to an assignment, unique per
// (assignment, student).
type AssignmentSubmission struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	FilePath     string           `db:"file_path" json:"file_path"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Comments     *string          `db:"comments" json:"comments,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter scopes submission listings. StudentID restricts to the
// caller's own submissions, AssignmentFacultyID to assignments the caller
// authored.
type SubmissionFilter struct {
	AssignmentID        string
	StudentID           string
	AssignmentFacultyID string
	Status              *SubmissionStatus
	Page                int
	PageSize            int
}

// StudyMaterial is reference material uploaded by faculty for a batch.
type StudyMaterial struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	Batch       string    `db:"batch" json:"batch"`
	FilePath    string    `db:"file_path" json:"file_path"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudyMaterialFilter scopes material listings. FacultyID and Batch carry
// the caller's visibility scope.
type StudyMaterialFilter struct {
	SubjectID string
	FacultyID string
	Batch     string
	Page      int
	PageSize  int
}
