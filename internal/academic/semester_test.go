package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eesa/eesa-api/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentSemester(t *testing.T) {
	tests := []struct {
		name           string
		enrollmentYear int
		course         models.Course
		ref            time.Time
		want           int
	}{
		{"first semester right after enrollment", 2025, models.CourseBTech, date(2025, time.September, 1), 2},
		{"btech third year capped at eight", 2022, models.CourseBTech, date(2025, time.September, 1), 8},
		{"mtech before august stays in first year", 2024, models.CourseMTech, date(2025, time.March, 1), 2},
		{"mtech after august advances", 2024, models.CourseMTech, date(2025, time.August, 1), 4},
		{"mtech capped at four", 2020, models.CourseMTech, date(2025, time.September, 1), 4},
		{"phd caps at ten", 2015, models.CoursePhD, date(2025, time.September, 1), 10},
		{"msc caps at four", 2021, models.CourseMSc, date(2025, time.February, 1), 4},
		{"unknown course falls back to btech cap", 2010, models.Course("Diploma"), date(2025, time.September, 1), 8},
		{"enrollment in the future clamps to one", 2030, models.CourseBTech, date(2025, time.September, 1), 1},
		{"july thirty-first is previous academic year", 2024, models.CourseBTech, date(2025, time.July, 31), 2},
		{"august first starts the new academic year", 2024, models.CourseBTech, date(2025, time.August, 1), 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CurrentSemester(tc.enrollmentYear, tc.course, tc.ref))
		})
	}
}

func TestAcademicYearOf(t *testing.T) {
	assert.Equal(t, 2025, AcademicYearOf(date(2025, time.September, 1)))
	assert.Equal(t, 2024, AcademicYearOf(date(2025, time.March, 1)))
	assert.Equal(t, 2025, AcademicYearOf(date(2025, time.August, 1)))
}

func TestYearLabel(t *testing.T) {
	assert.Equal(t, "2025-2026", YearLabel(date(2025, time.October, 10)))
	assert.Equal(t, "2024-2025", YearLabel(date(2025, time.April, 10)))
}

func TestBatchLabel(t *testing.T) {
	assert.Equal(t, "2022-2026", BatchLabel(2022, 4))
	assert.Equal(t, "2024-2026", BatchLabel(2024, 2))
	assert.Equal(t, "2022-2026", BatchLabel(2022, 0))
}

func TestTermParity(t *testing.T) {
	assert.Equal(t, "Odd", TermParity(date(2025, time.November, 1)))
	assert.Equal(t, "Even", TermParity(date(2025, time.February, 1)))
}
