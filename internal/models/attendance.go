package models

import "time"

// Teaching hours run 1..6 per day.
const (
	MinHour = 1
	MaxHour = 6
)

// Attendance records presence for one student, subject, date and hour.
// The tuple (student, subject, date, hour) is unique.
type Attendance struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	FacultyID string    `db:"faculty_id" json:"faculty_id"`
	Date      time.Time `db:"date" json:"date"`
	Hour      int       `db:"hour" json:"hour"`
	Present   bool      `db:"present" json:"present"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the row with display metadata.
type AttendanceRecord struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// AttendanceFilter scopes listing queries. StudentID and FacultyID double
// as the caller's visibility scope.
type AttendanceFilter struct {
	StudentID string
	SubjectID string
	FacultyID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Hour      *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceSummary aggregates presence counts for one student and subject.
type AttendanceSummary struct {
	SubjectID string  `db:"subject_id" json:"subject_id"`
	Total     int     `db:"total" json:"total"`
	Present   int     `db:"present" json:"present"`
	Percent   float64 `json:"percent"`
}

// BulkRowOutcome reports the result of one row in a bulk upsert.
type BulkRowOutcome struct {
	StudentID string `json:"student_id"`
	Created   bool   `json:"created"`
	Error     string `json:"error,omitempty"`
}

// AttendanceRowOutcome is the per-row result of a bulk attendance upsert.
type AttendanceRowOutcome struct {
	BulkRowOutcome
	Present bool `json:"present"`
}
