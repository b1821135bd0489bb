package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidGradeValue is returned when a grade is neither numeric nor a
// recognised letter grade.
var ErrInvalidGradeValue = errors.New("invalid grade value")

// ParseNumericGrade attempts to read a grade value as a percentage,
// tolerating a trailing percent sign. The second return reports success.
func ParseNumericGrade(grade string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(grade, "%", ""))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatNumericGrade stores whole percentages as integer strings and
// everything else with one decimal.
func FormatNumericGrade(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.1f", v)
}

// ApplyGrade records a final grade on the enrollment and derives the
// resulting status. Numeric grades are compared against passingThreshold and
// never produce grade points; letter grades take their weight from the
// grade-points table. The caller is responsible for checking Gradable().
func (e *Enrollment) ApplyGrade(grade string, passingThreshold float64, now time.Time) error {
	trimmed := strings.TrimSpace(grade)

	if v, ok := ParseNumericGrade(trimmed); ok {
		stored := FormatNumericGrade(v)
		e.Grade = &stored
		e.GradePoints = nil
		e.GradedAt = &now
		if v >= passingThreshold {
			e.Status = EnrollmentStatusCompleted
		} else {
			e.Status = EnrollmentStatusFailed
		}
		return nil
	}

	points, ok := GradePoints[trimmed]
	if !ok {
		return ErrInvalidGradeValue
	}
	e.Grade = &trimmed
	e.GradedAt = &now
	if points != nil {
		v := *points
		e.GradePoints = &v
	} else {
		e.GradePoints = nil
	}
	switch trimmed {
	case "F":
		e.Status = EnrollmentStatusFailed
	case "W":
		e.Status = EnrollmentStatusWithdrawn
	default:
		// Includes "I"; incompletes count as Completed under current policy.
		e.Status = EnrollmentStatusCompleted
	}
	return nil
}
