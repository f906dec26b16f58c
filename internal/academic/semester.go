// Package academic holds the pure calendar rules of the institution:
// semester progression, academic-year labels and term parity.
package academic

import (
	"fmt"
	"time"

	"github.com/eesa/eesa-api/internal/models"
)

// The academic year starts on August 1. Dates before August belong to the
// previous academic year.
const academicYearStartMonth = time.August

// AcademicYearOf returns the starting calendar year of the academic year
// containing ref.
func AcademicYearOf(ref time.Time) int {
	year := ref.Year()
	if ref.Month() < academicYearStartMonth {
		year--
	}
	return year
}

// CurrentSemester derives a student's semester from their enrollment year.
// Two semesters elapse per academic year and the result is clamped to
// [1, course cap].
func CurrentSemester(enrollmentYear int, course models.Course, ref time.Time) int {
	yearsElapsed := AcademicYearOf(ref) - enrollmentYear
	semester := yearsElapsed*2 + 2

	max := course.MaxSemesters()
	if semester < 1 {
		return 1
	}
	if semester > max {
		return max
	}
	return semester
}

// YearLabel renders the academic year containing ref, e.g. "2024-2025".
func YearLabel(ref time.Time) string {
	start := AcademicYearOf(ref)
	return fmt.Sprintf("%d-%d", start, start+1)
}

// BatchLabel renders the cohort label for an enrollment year, e.g.
// "2022-2026" for a four-year programme.
func BatchLabel(enrollmentYear, programmeYears int) string {
	if programmeYears <= 0 {
		programmeYears = 4
	}
	return fmt.Sprintf("%d-%d", enrollmentYear, enrollmentYear+programmeYears)
}

// TermParity reports whether ref falls in the odd (Aug-Dec) or even
// (Jan-Jul) term.
func TermParity(ref time.Time) string {
	if ref.Month() >= academicYearStartMonth {
		return "Odd"
	}
	return "Even"
}
