package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/registrar-api/internal/models"
	"github.com/uniserve/registrar-api/internal/repository"
	appErrors "github.com/uniserve/registrar-api/pkg/errors"
)

// fakeRegistrationStore backs the registration engine with maps. It plays
// both the store and the transaction role; InTx simply runs the callback
// against the same state.
type fakeRegistrationStore struct {
	sections    map[string]*models.SectionDetail
	enrollments map[string]models.Enrollment
	nextID      int
}

func newFakeRegistrationStore() *fakeRegistrationStore {
	return &fakeRegistrationStore{
		sections:    make(map[string]*models.SectionDetail),
		enrollments: make(map[string]models.Enrollment),
	}
}

func (f *fakeRegistrationStore) InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error {
	return fn(f)
}

func (f *fakeRegistrationStore) LockSection(ctx context.Context, sectionID string) (*models.CourseSection, error) {
	detail, ok := f.sections[sectionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	section := detail.CourseSection
	return &section, nil
}

func (f *fakeRegistrationStore) GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (f *fakeRegistrationStore) GetByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		f.nextID++
		enrollment.ID = fmt.Sprintf("enr-%d", f.nextID)
	}
	f.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (f *fakeRegistrationStore) Update(ctx context.Context, enrollment *models.Enrollment) error {
	f.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (f *fakeRegistrationStore) UpdateSectionCounts(ctx context.Context, sectionID string, enrolled, waitlisted int) error {
	detail, ok := f.sections[sectionID]
	if !ok {
		return sql.ErrNoRows
	}
	detail.EnrolledCount = enrolled
	detail.WaitlistCount = waitlisted
	return nil
}

func (f *fakeRegistrationStore) ListWaitlisted(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	var waitlisted []models.Enrollment
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusWaitlisted {
			waitlisted = append(waitlisted, e)
		}
	}
	sort.Slice(waitlisted, func(i, j int) bool {
		pi, pj := waitlisted[i].WaitlistPosition, waitlisted[j].WaitlistPosition
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})
	return waitlisted, nil
}

func (f *fakeRegistrationStore) UpdateWaitlistPositions(ctx context.Context, enrollments []*models.Enrollment) error {
	for _, e := range enrollments {
		stored, ok := f.enrollments[e.ID]
		if !ok {
			continue
		}
		stored.WaitlistPosition = e.WaitlistPosition
		f.enrollments[e.ID] = stored
	}
	return nil
}

func (f *fakeRegistrationStore) CountByStatus(ctx context.Context, sectionID string) (map[models.EnrollmentStatus]int, error) {
	counts := make(map[models.EnrollmentStatus]int)
	for _, e := range f.enrollments {
		if e.SectionID == sectionID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRegistrationStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeRegistrationStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := f.detailFor(e)
	return &detail, nil
}

func (f *fakeRegistrationStore) ListActiveByStudentTerm(ctx context.Context, studentID, term string) ([]models.EnrollmentDetail, error) {
	var details []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if e.StudentID != studentID || e.Status != models.EnrollmentStatusEnrolled {
			continue
		}
		if section, ok := f.sections[e.SectionID]; ok && section.Term == term {
			details = append(details, f.detailFor(e))
		}
	}
	return details, nil
}

func (f *fakeRegistrationStore) ListDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var details []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if e.StudentID == studentID {
			details = append(details, f.detailFor(e))
		}
	}
	return details, nil
}

func (f *fakeRegistrationStore) detailFor(e models.Enrollment) models.EnrollmentDetail {
	detail := models.EnrollmentDetail{Enrollment: e}
	if section, ok := f.sections[e.SectionID]; ok {
		detail.CourseCode = section.CourseCode
		detail.CourseTitle = section.CourseTitle
		detail.SectionCode = section.SectionCode
		detail.Term = section.Term
		detail.Credits = section.Credits
		detail.Schedule = section.Schedule
	}
	return detail
}

// sectionDirectory serves section reads from the fake store's maps; the
// store's own FindDetailByID name is taken by the enrollment lookup.
type sectionDirectory struct {
	store *fakeRegistrationStore
}

func (d sectionDirectory) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	return d.store.LockSection(ctx, id)
}

func (d sectionDirectory) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, ok := d.store.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *detail
	return &copied, nil
}

type studentDirectory struct {
	students map[string]*models.StudentDetail
}

func (d studentDirectory) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := d.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type recordingNotifier struct {
	sent []models.Notification
}

func (n *recordingNotifier) Dispatch(notification *models.Notification) models.DeliveryOutcome {
	n.sent = append(n.sent, *notification)
	return models.DeliveryQueued
}

type recordingAuditWriter struct {
	entries []models.AuditLog
}

func (w *recordingAuditWriter) Create(ctx context.Context, entry *models.AuditLog) error {
	w.entries = append(w.entries, *entry)
	return nil
}

type countingMetrics struct {
	enrollments map[models.EnrollmentStatus]int
	drops       int
	promotions  int
}

func (m *countingMetrics) RecordEnrollment(status models.EnrollmentStatus) {
	if m.enrollments == nil {
		m.enrollments = make(map[models.EnrollmentStatus]int)
	}
	m.enrollments[status]++
}

func (m *countingMetrics) RecordDrop()      { m.drops++ }
func (m *countingMetrics) RecordPromotion() { m.promotions++ }

type registrationFixture struct {
	svc      *EnrollmentService
	store    *fakeRegistrationStore
	notifier *recordingNotifier
	audit    *recordingAuditWriter
	metrics  *countingMetrics
}

func newRegistrationFixture() *registrationFixture {
	store := newFakeRegistrationStore()
	store.sections["sec-1"] = &models.SectionDetail{
		CourseSection: models.CourseSection{
			ID:               "sec-1",
			CourseID:         "course-1",
			SectionCode:      "A",
			Term:             "2026-Fall",
			Capacity:         2,
			WaitlistCapacity: 2,
			Status:           models.SectionStatusOpen,
			Schedule:         models.Schedule{Days: []string{"Mon", "Wed"}, Start: "10:00", End: "11:15"},
		},
		CourseCode:  "CS101",
		CourseTitle: "Intro to Computer Science",
		Credits:     3,
	}

	notifier := &recordingNotifier{}
	audit := &recordingAuditWriter{}
	metrics := &countingMetrics{}
	students := studentDirectory{students: map[string]*models.StudentDetail{
		"stu-1": {StudentProfile: models.StudentProfile{ID: "stu-1", UserID: "user-1", AcademicStatus: models.AcademicStatusActive}},
		"stu-2": {StudentProfile: models.StudentProfile{ID: "stu-2", UserID: "user-2", AcademicStatus: models.AcademicStatusActive}},
		"stu-3": {StudentProfile: models.StudentProfile{ID: "stu-3", UserID: "user-3", AcademicStatus: models.AcademicStatusActive}},
	}}

	svc := NewEnrollmentService(store, sectionDirectory{store: store}, students,
		notifier, nil, audit, metrics, EnrollmentPolicy{MaxCreditsPerTerm: 18}, nil, nil)
	return &registrationFixture{svc: svc, store: store, notifier: notifier, audit: audit, metrics: metrics}
}

func (f *registrationFixture) section(id string) *models.SectionDetail {
	return f.store.sections[id]
}

func (f *registrationFixture) seedEnrollment(e models.Enrollment) {
	f.store.enrollments[e.ID] = e
}

func TestEnrollmentServiceEnrollTakesSeat(t *testing.T) {
	fx := newRegistrationFixture()

	detail, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)
	assert.NotNil(t, detail.EnrolledAt)
	assert.Equal(t, 1, fx.section("sec-1").EnrolledCount)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, "user-1", fx.notifier.sent[0].UserID)
	assert.Equal(t, "Enrollment confirmed", fx.notifier.sent[0].Title)
	require.Len(t, fx.audit.entries, 1)
	assert.Equal(t, models.AuditActionEnroll, fx.audit.entries[0].Action)
	assert.Equal(t, 1, fx.metrics.enrollments[models.EnrollmentStatusEnrolled])
}

func TestEnrollmentServiceEnrollWaitlistsWhenFull(t *testing.T) {
	fx := newRegistrationFixture()
	fx.section("sec-1").Capacity = 1
	fx.section("sec-1").EnrolledCount = 1

	detail, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, detail.Status)
	require.NotNil(t, detail.WaitlistPosition)
	assert.Equal(t, 1, *detail.WaitlistPosition)
	assert.Equal(t, 1, fx.section("sec-1").WaitlistCount)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, "Added to waitlist", fx.notifier.sent[0].Title)
}

func TestEnrollmentServiceEnrollRejectsFullWaitlist(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1
	section.WaitlistCapacity = 1
	section.WaitlistCount = 1

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWaitlistFull.Code, appErr.Code)
	assert.Empty(t, fx.notifier.sent)
}

func TestEnrollmentServiceEnrollRejectsDuplicate(t *testing.T) {
	fx := newRegistrationFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.section("sec-1").EnrolledCount = 1

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEligible.Code, appErrors.FromError(err).Code)

	// Override bypasses the eligibility report but the transaction still
	// refuses a live duplicate.
	_, err = fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1", Override: true}, "reg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReenrollAfterDropReusesRow(t *testing.T) {
	fx := newRegistrationFixture()
	droppedAt := time.Now().UTC()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusDropped, DroppedAt: &droppedAt})

	detail, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "e1", detail.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)
	assert.Nil(t, detail.DroppedAt)
	assert.Len(t, fx.store.enrollments, 1)
}

func TestEnrollmentServiceEnrollClosedSection(t *testing.T) {
	fx := newRegistrationFixture()
	fx.section("sec-1").Status = models.SectionStatusClosed

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEligible.Code, appErrors.FromError(err).Code)

	// An override pushes past the eligibility report and the status guard.
	detail, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1", Override: true}, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, detail.Status)
	require.NotNil(t, detail.OverrideBy)
	assert.Equal(t, "reg-1", *detail.OverrideBy)
	require.Len(t, fx.audit.entries, 1)
	assert.Equal(t, models.AuditActionEnrollOverride, fx.audit.entries[0].Action)
}

func TestEnrollmentServiceAuditSeatNeutral(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1
	section.AllowAudit = true

	detail, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", SectionID: "sec-1", Audit: true}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusAuditing, detail.Status)
	assert.Equal(t, 1, fx.section("sec-1").EnrolledCount)
	assert.Equal(t, 0, fx.section("sec-1").WaitlistCount)
}

func TestEnrollmentServiceCheckEligibility(t *testing.T) {
	fx := newRegistrationFixture()
	fx.store.sections["sec-2"] = &models.SectionDetail{
		CourseSection: models.CourseSection{
			ID:          "sec-2",
			CourseID:    "course-2",
			SectionCode: "B",
			Term:        "2026-Fall",
			Capacity:    30,
			Status:      models.SectionStatusOpen,
			Schedule:    models.Schedule{Days: []string{"Mon"}, Start: "10:30", End: "11:45"},
		},
		CourseCode: "MATH200",
		Credits:    4,
	}
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})

	report, err := fx.svc.CheckEligibility(context.Background(), "stu-1", "sec-2")
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "schedule conflict with CS101 A")
}

func TestEnrollmentServiceCheckEligibilitySuspendedStudent(t *testing.T) {
	fx := newRegistrationFixture()
	fx.svc.students.(studentDirectory).students["stu-1"].AcademicStatus = models.AcademicStatusSuspended

	report, err := fx.svc.CheckEligibility(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "Suspended")
}

func TestEnrollmentServiceCheckEligibilityReportsFullSection(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1

	report, err := fx.svc.CheckEligibility(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Contains(t, report.Errors, "section is full")
}

func TestEnrollmentServiceCreditLimitWarning(t *testing.T) {
	fx := newRegistrationFixture()
	fx.store.sections["sec-2"] = &models.SectionDetail{
		CourseSection: models.CourseSection{
			ID:       "sec-2",
			Term:     "2026-Fall",
			Capacity: 30,
			Status:   models.SectionStatusOpen,
			Schedule: models.Schedule{Days: []string{"Tue"}, Start: "09:00", End: "10:15"},
		},
		CourseCode: "PHYS300",
		Credits:    4,
	}
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.svc.policy.MaxCreditsPerTerm = 6

	report, err := fx.svc.CheckEligibility(context.Background(), "stu-1", "sec-2")
	require.NoError(t, err)
	assert.True(t, report.OK)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "credit limit")
}

func TestEnrollmentServiceDropPromotesWaitlist(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1
	section.WaitlistCount = 1
	now := time.Now().UTC()
	pos := 1
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled, EnrolledAt: &now})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-2", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: &pos, WaitlistedAt: &now})

	detail, err := fx.svc.Drop(context.Background(), "e1", DropRequest{Reason: "schedule conflict"}, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, detail.Status)

	promoted := fx.store.enrollments["e2"]
	assert.Equal(t, models.EnrollmentStatusEnrolled, promoted.Status)
	assert.Nil(t, promoted.WaitlistPosition)
	assert.Equal(t, 1, fx.section("sec-1").EnrolledCount)
	assert.Equal(t, 0, fx.section("sec-1").WaitlistCount)
	assert.Equal(t, 1, fx.metrics.drops)
	assert.Equal(t, 1, fx.metrics.promotions)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, "user-2", fx.notifier.sent[0].UserID)
	assert.Equal(t, "Enrolled from waitlist", fx.notifier.sent[0].Title)
}

func TestEnrollmentServiceDropWaitlistedRenumbers(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1
	section.WaitlistCount = 2
	p1, p2 := 1, 2
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-2", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: &p1})
	fx.seedEnrollment(models.Enrollment{ID: "e3", StudentID: "stu-3", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: &p2})

	_, err := fx.svc.Drop(context.Background(), "e2", DropRequest{}, "stu-2")
	require.NoError(t, err)

	remaining := fx.store.enrollments["e3"]
	require.NotNil(t, remaining.WaitlistPosition)
	assert.Equal(t, 1, *remaining.WaitlistPosition)
	assert.Equal(t, 1, fx.section("sec-1").WaitlistCount)
	// No seat was freed, so nobody gets promoted.
	assert.Equal(t, 0, fx.metrics.promotions)
}

func TestEnrollmentServiceDropRejectsTerminalStatus(t *testing.T) {
	fx := newRegistrationFixture()
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted})

	_, err := fx.svc.Drop(context.Background(), "e1", DropRequest{}, "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServicePromoteWaitlistNoop(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 1
	section.EnrolledCount = 1

	// Full section: nothing to do, no error.
	detail, err := fx.svc.PromoteWaitlist(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Nil(t, detail)

	// Open seat but empty waitlist.
	section.EnrolledCount = 0
	detail, err = fx.svc.PromoteWaitlist(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestEnrollmentServiceReconcileSection(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.EnrolledCount = 5
	section.WaitlistCount = 3
	pos := 4
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-2", SectionID: "sec-1", Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: &pos})

	result, err := fx.svc.ReconcileSection(context.Background(), "sec-1", "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 5, result.PreviousEnrolled)
	assert.Equal(t, 1, result.Enrolled)
	assert.Equal(t, 1, result.Waitlisted)
	assert.Equal(t, 1, fx.section("sec-1").EnrolledCount)
	assert.Equal(t, 1, fx.section("sec-1").WaitlistCount)

	renumbered := fx.store.enrollments["e2"]
	require.NotNil(t, renumbered.WaitlistPosition)
	assert.Equal(t, 1, *renumbered.WaitlistPosition)
}

func TestEnrollmentServiceAvailability(t *testing.T) {
	fx := newRegistrationFixture()
	section := fx.section("sec-1")
	section.Capacity = 30
	section.EnrolledCount = 12
	section.WaitlistCount = 2

	availability, err := fx.svc.Availability(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 18, availability.AvailableSeats)
	assert.Equal(t, 12, availability.EnrolledCount)
	assert.Equal(t, 2, availability.WaitlistCount)

	_, err = fx.svc.Availability(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceSummary(t *testing.T) {
	fx := newRegistrationFixture()
	fx.svc.students.(studentDirectory).students["stu-1"].GPA = 3.42
	fx.seedEnrollment(models.Enrollment{ID: "e1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled})
	fx.seedEnrollment(models.Enrollment{ID: "e2", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusCompleted})

	summary, err := fx.svc.Summary(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EnrolledCount)
	assert.Equal(t, 1, summary.CompletedCount)
	assert.Equal(t, 3.0, summary.TotalCredits)
	assert.Equal(t, 3.42, summary.GPA)
}
