package models

import "time"

// NoteStatus tracks the review state of a shared note.
type NoteStatus string

const (
	NotePending  NoteStatus = "pending"
	NoteApproved NoteStatus = "approved"
	NoteRejected NoteStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s NoteStatus) Valid() bool {
	switch s {
	case NotePending, NoteApproved, NoteRejected:
		return true
	default:
		return false
	}
}

// Note is study material uploaded by a student and shared publicly once a
// faculty reviewer approves it.
type Note struct {
	ID            string     `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	FilePath      string     `db:"file_path" json:"file_path"`
	UploadedBy    string     `db:"uploaded_by" json:"uploaded_by"`
	Subject       string     `db:"subject" json:"subject"`
	Status        NoteStatus `db:"status" json:"status"`
	ReviewerID    *string    `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewComment *string    `db:"review_comment" json:"review_comment,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// NoteFilter scopes note listings. Status narrows; OwnerStudentID widens a
// student's view to include their own unapproved notes; ApprovedOnly is the
// public default.
type NoteFilter struct {
	Status         *NoteStatus
	Search         string
	ApprovedOnly   bool
	OwnerStudentID string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
