package models

import "time"

// InternalMark stores one test score. The tuple (student, subject,
// test_name) is unique.
type InternalMark struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	FacultyID    string    `db:"faculty_id" json:"faculty_id"`
	TestName     string    `db:"test_name" json:"test_name"`
	MaxMark      float64   `db:"max_mark" json:"max_mark"`
	ObtainedMark float64   `db:"obtained_mark" json:"obtained_mark"`
	Remarks      *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// InternalMarkRecord extends the row with display metadata. RollNumber is
// only populated by report queries.
type InternalMarkRecord struct {
	InternalMark
	StudentName string `db:"student_name" json:"student_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	RollNumber  string `db:"roll_number" json:"roll_number,omitempty"`
}

// InternalMarkFilter scopes listing queries. StudentID and FacultyID double
// as the caller's visibility scope.
type InternalMarkFilter struct {
	StudentID string
	SubjectID string
	FacultyID string
	TestName  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MarkRowOutcome is the per-row result of a bulk mark upsert.
type MarkRowOutcome struct {
	BulkRowOutcome
	ObtainedMark float64 `json:"obtained_mark"`
}
