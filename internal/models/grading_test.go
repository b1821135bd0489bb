package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumericGrade(t *testing.T) {
	v, ok := ParseNumericGrade("85")
	require.True(t, ok)
	assert.Equal(t, 85.0, v)

	v, ok = ParseNumericGrade(" 72.5% ")
	require.True(t, ok)
	assert.Equal(t, 72.5, v)

	_, ok = ParseNumericGrade("A-")
	assert.False(t, ok)
	_, ok = ParseNumericGrade("")
	assert.False(t, ok)
}

func TestFormatNumericGrade(t *testing.T) {
	assert.Equal(t, "85", FormatNumericGrade(85.0))
	assert.Equal(t, "72.5", FormatNumericGrade(72.5))
}

func TestApplyLetterGrade(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, e.ApplyGrade("A-", 60, time.Now()))

	assert.Equal(t, EnrollmentStatusCompleted, e.Status)
	require.NotNil(t, e.Grade)
	assert.Equal(t, "A-", *e.Grade)
	require.NotNil(t, e.GradePoints)
	assert.Equal(t, 3.7, *e.GradePoints)
	assert.NotNil(t, e.GradedAt)
}

func TestApplyFailingLetterGrade(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, e.ApplyGrade("F", 60, time.Now()))

	assert.Equal(t, EnrollmentStatusFailed, e.Status)
	require.NotNil(t, e.GradePoints)
	assert.Equal(t, 0.0, *e.GradePoints)
}

func TestApplyWithdrawal(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, e.ApplyGrade("W", 60, time.Now()))

	assert.Equal(t, EnrollmentStatusWithdrawn, e.Status)
	assert.Nil(t, e.GradePoints)
}

func TestApplyIncompleteCountsAsCompleted(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, e.ApplyGrade("I", 60, time.Now()))

	assert.Equal(t, EnrollmentStatusCompleted, e.Status)
	assert.Nil(t, e.GradePoints)
}

func TestApplyNumericGradeAgainstThreshold(t *testing.T) {
	passing := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, passing.ApplyGrade("60", 60, time.Now()))
	assert.Equal(t, EnrollmentStatusCompleted, passing.Status)
	require.NotNil(t, passing.Grade)
	assert.Equal(t, "60", *passing.Grade)
	assert.Nil(t, passing.GradePoints)

	failing := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, failing.ApplyGrade("45", 60, time.Now()))
	assert.Equal(t, EnrollmentStatusFailed, failing.Status)

	percent := &Enrollment{Status: EnrollmentStatusEnrolled}
	require.NoError(t, percent.ApplyGrade("55%", 50, time.Now()))
	assert.Equal(t, EnrollmentStatusCompleted, percent.Status)
	assert.Equal(t, "55", *percent.Grade)
}

func TestApplyGradeRejectsUnknownValue(t *testing.T) {
	e := &Enrollment{Status: EnrollmentStatusEnrolled}
	err := e.ApplyGrade("Z", 60, time.Now())
	assert.ErrorIs(t, err, ErrInvalidGradeValue)
	assert.Nil(t, e.Grade)
	assert.Equal(t, EnrollmentStatusEnrolled, e.Status)
}

func TestIsValidLetterGrade(t *testing.T) {
	assert.True(t, IsValidLetterGrade("B+"))
	assert.True(t, IsValidLetterGrade("NP"))
	assert.False(t, IsValidLetterGrade("E"))
}
