package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/registrar-api/internal/models"
)

func transcriptFixtureStudent() *models.StudentDetail {
	program := "BSc Computer Science"
	return &models.StudentDetail{
		StudentProfile: models.StudentProfile{
			ID:                 "stu-1",
			StudentNumber:      "S2026001",
			Program:            &program,
			TotalCreditsEarned: 9,
		},
		FullName: "Ada Lovelace",
	}
}

func TestBuildTranscriptGroupsByTerm(t *testing.T) {
	a, b, f := 4.0, 3.0, 0.0
	rows := []models.TranscriptRow{
		{Term: "2026-Fall", CourseCode: "CS101", Credits: 3, Grade: "A", GradePoints: &a},
		{Term: "2026-Fall", CourseCode: "MATH200", Credits: 3, Grade: "B", GradePoints: &b},
		{Term: "2027-Spring", CourseCode: "CS201", Credits: 3, Grade: "F", GradePoints: &f},
	}

	transcript := buildTranscript(transcriptFixtureStudent(), rows, true)
	assert.True(t, transcript.Official)
	assert.Equal(t, "Ada Lovelace", transcript.StudentName)
	assert.Equal(t, "BSc Computer Science", transcript.Program)
	require.Len(t, transcript.Terms, 2)
	assert.Equal(t, "2026-Fall", transcript.Terms[0].Term)
	assert.Len(t, transcript.Terms[0].Rows, 2)
	assert.Equal(t, 3.5, transcript.Terms[0].TermGPA)
	assert.Equal(t, 0.0, transcript.Terms[1].TermGPA)
	// (4*3 + 3*3 + 0*3) / 9
	assert.Equal(t, 2.33, transcript.CumulativeGPA)
	assert.Equal(t, 9.0, transcript.CreditsEarned)
}

func TestBuildTranscriptEmpty(t *testing.T) {
	transcript := buildTranscript(transcriptFixtureStudent(), nil, false)
	assert.False(t, transcript.Official)
	assert.Empty(t, transcript.Terms)
	assert.Equal(t, 0.0, transcript.CumulativeGPA)
}

func TestTranscriptGPASkipsUnweightedRows(t *testing.T) {
	a := 4.0
	rows := []models.TranscriptRow{
		{Credits: 3, Grade: "A", GradePoints: &a},
		{Credits: 3, Grade: "W"},
		{Credits: 3, Grade: "85"},
		{Credits: 0, Grade: "P"},
	}
	assert.Equal(t, 4.0, transcriptGPA(rows))
	assert.Equal(t, 0.0, transcriptGPA(nil))
}

func TestTranscriptSections(t *testing.T) {
	a := 3.7
	transcript := &models.Transcript{
		Terms: []models.TranscriptTerm{{
			Term:    "2026-Fall",
			TermGPA: 3.7,
			Rows: []models.TranscriptRow{
				{Term: "2026-Fall", CourseCode: "CS101", CourseTitle: "Intro to Computer Science", Credits: 3, Grade: "A-", GradePoints: &a},
			},
		}},
	}

	sections := transcriptSections(transcript)
	require.Len(t, sections, 1)
	assert.Equal(t, "2026-Fall (GPA 3.70)", sections[0].Title)
	require.Len(t, sections[0].Data.Rows, 1)
	assert.Equal(t, "CS101", sections[0].Data.Rows[0]["Course"])
	assert.Equal(t, "3.70", sections[0].Data.Rows[0]["Points"])

	empty := transcriptSections(&models.Transcript{})
	require.Len(t, empty, 1)
	assert.Equal(t, "No graded coursework", empty[0].Title)
}

func TestTranscriptSummary(t *testing.T) {
	summary := transcriptSummary(&models.Transcript{CumulativeGPA: 3.42, CreditsEarned: 54})
	require.Len(t, summary, 2)
	assert.Equal(t, "Cumulative GPA: 3.42", summary[0])
	assert.Equal(t, "Credits Earned: 54.0", summary[1])
}
