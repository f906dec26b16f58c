package models

import "time"

// Faculty is the staff profile owned 1:1 by a user with role faculty.
type Faculty struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	Department  string    `db:"department" json:"department"`
	Designation string    `db:"designation" json:"designation"`
	JoiningDate time.Time `db:"joining_date" json:"joining_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyDetail extends the profile with the owning user's identity fields.
type FacultyDetail struct {
	Faculty
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
}

// FacultyFilter captures supported filters for listing faculty.
type FacultyFilter struct {
	Department string
	Search     string
	UserID     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
