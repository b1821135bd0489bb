package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/registrar-api/internal/models"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

// The grading engine reads from the same fake store as the registration
// tests; the section-scoped reads live here.

func (f *fakeRegistrationStore) ListBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range f.enrollments {
		if e.SectionID == sectionID {
			list = append(list, e)
		}
	}
	return list, nil
}

func (f *fakeRegistrationStore) Roster(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	var roster []models.RosterEntry
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status != models.EnrollmentStatusDropped {
			roster = append(roster, models.RosterEntry{
				EnrollmentID: e.ID,
				StudentID:    e.StudentID,
				Status:       e.Status,
				Grade:        e.Grade,
			})
		}
	}
	return roster, nil
}

func (f *fakeRegistrationStore) GradeCounts(ctx context.Context, sectionID string) (models.GradeDistribution, error) {
	dist := make(models.GradeDistribution)
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Grade != nil {
			dist[*e.Grade]++
		}
	}
	return dist, nil
}

type academicsRecorder struct {
	studentDirectory
	gpa     map[string]float64
	credits map[string]float64
}

func (r *academicsRecorder) UpdateAcademics(ctx context.Context, id string, gpa, creditsEarned float64) error {
	r.gpa[id] = gpa
	r.credits[id] = creditsEarned
	return nil
}

type gradeCounter struct {
	graded int
}

func (g *gradeCounter) RecordGrade() { g.graded++ }

type gradingFixture struct {
	svc      *GradeService
	store    *fakeRegistrationStore
	students *academicsRecorder
	notifier *recordingNotifier
	audit    *recordingAuditWriter
	metrics  *gradeCounter
}

func newGradingFixture() *gradingFixture {
	store := newFakeRegistrationStore()
	store.sections["sec-1"] = &models.SectionDetail{
		CourseSection: models.CourseSection{ID: "sec-1", SectionCode: "A", Term: "2026-Fall", Capacity: 30, Status: models.SectionStatusOpen},
		CourseCode:    "CS101",
		CourseTitle:   "Intro to Computer Science",
		Credits:       3,
	}
	store.sections["sec-2"] = &models.SectionDetail{
		CourseSection: models.CourseSection{ID: "sec-2", SectionCode: "B", Term: "2027-Spring", Capacity: 30, Status: models.SectionStatusOpen},
		CourseCode:    "MATH200",
		CourseTitle:   "Linear Algebra",
		Credits:       3,
	}

	students := &academicsRecorder{
		studentDirectory: studentDirectory{students: map[string]*models.StudentDetail{
			"stu-1": {StudentProfile: models.StudentProfile{ID: "stu-1", UserID: "user-1", AcademicStatus: models.AcademicStatusActive}},
		}},
		gpa:     make(map[string]float64),
		credits: make(map[string]float64),
	}
	notifier := &recordingNotifier{}
	audit := &recordingAuditWriter{}
	metrics := &gradeCounter{}

	svc := NewGradeService(store, students, notifier, audit, metrics, 60, nil, nil)
	return &gradingFixture{svc: svc, store: store, students: students, notifier: notifier, audit: audit, metrics: metrics}
}

func (f *gradingFixture) seedEnrollment(e models.Enrollment) {
	f.store.enrollments[e.ID] = e
}

func TestGradeServiceSetLetterGrade(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	result, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "A-"}, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade set to A-"}, result.Messages)
	detail := result.Enrollment
	assert.Equal(t, models.EnrollmentStatusCompleted, detail.Status)
	require.NotNil(t, detail.Grade)
	assert.Equal(t, "A-", *detail.Grade)
	require.NotNil(t, detail.GradePoints)
	assert.Equal(t, 3.7, *detail.GradePoints)

	assert.Equal(t, 3.7, fx.students.gpa["stu-1"])
	assert.Equal(t, 3.0, fx.students.credits["stu-1"])
	assert.Equal(t, 1, fx.metrics.graded)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, "user-1", fx.notifier.sent[0].UserID)
	assert.Equal(t, "Grade posted", fx.notifier.sent[0].Title)

	actions := make([]string, 0, len(fx.audit.entries))
	for _, entry := range fx.audit.entries {
		actions = append(actions, entry.Action)
	}
	assert.Contains(t, actions, models.AuditActionGradeChange)
	assert.Contains(t, actions, models.AuditActionGPARecalc)
}

func TestGradeServiceSetNumericGrade(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	result, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "45"}, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade set to 45"}, result.Messages)
	detail := result.Enrollment
	assert.Equal(t, models.EnrollmentStatusFailed, detail.Status)
	assert.Nil(t, detail.GradePoints)

	// Numeric grades carry no grade points, so the cached GPA is untouched
	// and the failed course earns no credits.
	assert.Equal(t, 0.0, fx.students.gpa["stu-1"])
	assert.Equal(t, 0.0, fx.students.credits["stu-1"])
}

func TestGradeServiceSetGradeRejectsInvalidValue(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	_, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "Z"}, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidGrade.Code, appErrors.FromError(err).Code)
	assert.Nil(t, fx.store.enrollments["e1"].Grade)
}

func TestGradeServiceSetGradeRejectsWaitlisted(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted})

	_, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "B"}, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRegrade(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	_, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "C"}, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, fx.students.gpa["stu-1"])

	// Completed enrollments stay gradable so a correction can overwrite.
	result, err := fx.svc.SetGrade(context.Background(), "e1", SetGradeRequest{Grade: "B+"}, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade changed from C to B+"}, result.Messages)
	assert.Equal(t, "B+", *result.Enrollment.Grade)
	assert.Equal(t, 3.3, fx.students.gpa["stu-1"])
}

func TestGradeServiceBulkSetGrades(t *testing.T) {
	fx := newGradingFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-1", SectionID: "sec-2", Status: models.EnrollmentStatusEnrolled})

	result, err := fx.svc.BulkSetGrades(context.Background(), "sec-1", []BulkGradeEntry{
		{EnrollmentID: "e1", Grade: "A"},
		{EnrollmentID: "e2", Grade: "B"},
		{EnrollmentID: "missing", Grade: "C"},
	}, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "enrollment does not belong to section", result.Failures[0].Reason)
	assert.Equal(t, "enrollment not found", result.Failures[1].Reason)

	_, err = fx.svc.BulkSetGrades(context.Background(), "sec-1", nil, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRecalculateGPA(t *testing.T) {
	fx := newGradingFixture()
	a, c, w := 4.0, 2.0, "W"
	gradeA, gradeC := "A", "C"
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted, Grade: &gradeA, GradePoints: &a})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-1", SectionID: "sec-2", Status: models.EnrollmentStatusCompleted, Grade: &gradeC, GradePoints: &c})
	fx.seedEnrollment(models.Enrollment{ID: "e3", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusWithdrawn, Grade: &w})

	result, err := fx.svc.RecalculateGPA(context.Background(), "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, result.GPA)
	assert.Equal(t, 6.0, result.GradedCredits)
	assert.Equal(t, 6.0, result.CreditsEarned)
	assert.Equal(t, 3.0, fx.students.gpa["stu-1"])
}

func TestGradeServiceRecalculateGPACountsGradePointRows(t *testing.T) {
	fx := newGradingFixture()
	f := 0.0
	gradeF, gradeNumeric := "F", "82"
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusFailed, Grade: &gradeF, GradePoints: &f})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-1", SectionID: "sec-2", Status: models.EnrollmentStatusCompleted, Grade: &gradeNumeric})

	// An F carries grade points, so its credits count toward the earned
	// total; the numeric pass carries none and contributes nothing.
	result, err := fx.svc.RecalculateGPA(context.Background(), "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.GPA)
	assert.Equal(t, 3.0, result.GradedCredits)
	assert.Equal(t, 3.0, result.CreditsEarned)
	assert.Equal(t, 3.0, fx.students.credits["stu-1"])
}

func TestGradeServiceRecalculateGPAKeepsPreviousWhenUngraded(t *testing.T) {
	fx := newGradingFixture()
	fx.students.students["stu-1"].GPA = 3.5
	fx.students.students["stu-1"].TotalCreditsEarned = 9
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	result, err := fx.svc.RecalculateGPA(context.Background(), "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3.5, result.GPA)
	assert.Equal(t, 0.0, result.GradedCredits)
	assert.Equal(t, 9.0, result.CreditsEarned)
}

func TestGradeServiceRecalculateGPAIdempotent(t *testing.T) {
	fx := newGradingFixture()
	b := 3.0
	gradeB := "B"
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted, Grade: &gradeB, GradePoints: &b})

	first, err := fx.svc.RecalculateGPA(context.Background(), "stu-1", "admin-1")
	require.NoError(t, err)
	second, err := fx.svc.RecalculateGPA(context.Background(), "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, first.GPA, second.GPA)
	assert.Equal(t, first.GradedCredits, second.GradedCredits)
	assert.Equal(t, first.CreditsEarned, second.CreditsEarned)
}

func TestGradeServiceTermGPA(t *testing.T) {
	fx := newGradingFixture()
	a, b := 4.0, 3.0
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted, GradePoints: &a})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-1", SectionID: "sec-2", Status: models.EnrollmentStatusCompleted, GradePoints: &b})

	result, err := fx.svc.TermGPA(context.Background(), "stu-1", "2026-Fall")
	require.NoError(t, err)
	assert.Equal(t, 4.0, result.GPA)
	assert.Equal(t, 3.0, result.GradedCredits)
}

func TestGradeServiceSummary(t *testing.T) {
	fx := newGradingFixture()
	graded := "B"
	pos := 1
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted, Grade: &graded})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-2", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.seedEnrollment(models.Enrollment{ID: "e3", StudentID: "stu-3", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: &pos})
	fx.seedEnrollment(models.Enrollment{ID: "e4", StudentID: "stu-4", SectionID: "sec-1", Status: models.EnrollmentStatusDropped})

	summary, err := fx.svc.Summary(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalStudents)
	assert.Equal(t, 1, summary.Graded)
	assert.Equal(t, 1, summary.Ungraded)
	assert.Equal(t, 50.0, summary.PercentageComplete)
}

func TestComputeGPA(t *testing.T) {
	a, f := 4.0, 0.0
	enrollments := []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{GradePoints: &a}, Credits: 3},
		{Enrollment: models.Enrollment{GradePoints: &f}, Credits: 3},
		{Enrollment: models.Enrollment{}, Credits: 3}, // ungraded, skipped
	}
	gpa, credits, ok := computeGPA(enrollments)
	require.True(t, ok)
	assert.Equal(t, 2.0, gpa)
	assert.Equal(t, 6.0, credits)

	_, _, ok = computeGPA(nil)
	assert.False(t, ok)
}
