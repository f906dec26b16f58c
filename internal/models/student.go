package models

import "time"

// Course identifies the degree programme a student is enrolled in.
type Course string

const (
	CourseBTech Course = "BTech"
	CourseMTech Course = "MTech"
	CourseMSc   Course = "MSc"
	CoursePhD   Course = "PhD"
)

// Valid returns true when the course is a supported value.
func (c Course) Valid() bool {
	switch c {
	case CourseBTech, CourseMTech, CourseMSc, CoursePhD:
		return true
	default:
		return false
	}
}

// MaxSemesters returns the semester cap for the course. Unknown courses
// fall back to the BTech cap.
func (c Course) MaxSemesters() int {
	switch c {
	case CourseMTech, CourseMSc:
		return 4
	case CoursePhD:
		return 10
	default:
		return 8
	}
}

// Student is the academic profile owned 1:1 by a user with role student.
type Student struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	EnrollmentYear  int       `db:"enrollment_year" json:"enrollment_year"`
	CurrentSemester int       `db:"current_semester" json:"current_semester"`
	Course          Course    `db:"course" json:"course"`
	Branch          string    `db:"branch" json:"branch"`
	Batch           string    `db:"batch" json:"batch"`
	CGPA            *float64  `db:"cgpa" json:"cgpa,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends the profile with the owning user's identity fields.
type StudentDetail struct {
	Student
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
}

// StudentFilter captures supported filters for listing students.
type StudentFilter struct {
	Batch          string
	Branch         string
	Course         *Course
	EnrollmentYear *int
	Active         *bool
	Search         string
	UserID         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
