package models

import "time"

// Subject represents an academic subject identified by a unique code.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Semester    int       `db:"semester" json:"semester"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Semester  *int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// FacultySubject is a teaching grant: it authorizes a faculty member to
// act on a subject for one batch. Unique per (faculty, subject, batch).
type FacultySubject struct {
	ID        string    `db:"id" json:"id"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Batch     string    `db:"batch" json:"batch"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FacultySubjectDetail extends the grant with display metadata.
type FacultySubjectDetail struct {
	FacultySubject
	FacultyName string `db:"faculty_name" json:"faculty_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// FacultySubjectFilter scopes grant listings. FacultyID and Batch carry
// the caller's visibility scope in addition to explicit query filters.
type FacultySubjectFilter struct {
	FacultyID string
	SubjectID string
	Batch     string
	Page      int
	PageSize  int
}
