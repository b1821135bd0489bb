package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollTakesSeatWhenAvailable(t *testing.T) {
	section := &CourseSection{Capacity: 2, EnrolledCount: 1, WaitlistCapacity: 5}
	e := &Enrollment{Status: EnrollmentStatusPending}

	err := e.Enroll(section, time.Now())
	require.NoError(t, err)
	assert.Equal(t, EnrollmentStatusEnrolled, e.Status)
	assert.NotNil(t, e.EnrolledAt)
	assert.Nil(t, e.WaitlistPosition)
	assert.Equal(t, 2, section.EnrolledCount)
}

func TestEnrollWaitlistsWhenFull(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 1, WaitlistCapacity: 3, WaitlistCount: 1}
	e := &Enrollment{Status: EnrollmentStatusPending}

	err := e.Enroll(section, time.Now())
	require.NoError(t, err)
	assert.Equal(t, EnrollmentStatusWaitlisted, e.Status)
	require.NotNil(t, e.WaitlistPosition)
	assert.Equal(t, 2, *e.WaitlistPosition)
	assert.NotNil(t, e.WaitlistedAt)
	assert.Equal(t, 2, section.WaitlistCount)
	assert.Equal(t, 1, section.EnrolledCount)
}

func TestEnrollRejectsWhenWaitlistFull(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 1, WaitlistCapacity: 1, WaitlistCount: 1}
	e := &Enrollment{Status: EnrollmentStatusPending}

	err := e.Enroll(section, time.Now())
	assert.ErrorIs(t, err, ErrWaitlistFull)
	assert.Equal(t, EnrollmentStatusPending, e.Status)
	assert.Equal(t, 1, section.WaitlistCount)
}

func TestEnrollOrderDecidesLastSeat(t *testing.T) {
	section := &CourseSection{Capacity: 1, WaitlistCapacity: 5}
	first := &Enrollment{}
	second := &Enrollment{}

	require.NoError(t, first.Enroll(section, time.Now()))
	require.NoError(t, second.Enroll(section, time.Now()))

	assert.Equal(t, EnrollmentStatusEnrolled, first.Status)
	assert.Equal(t, EnrollmentStatusWaitlisted, second.Status)
	require.NotNil(t, second.WaitlistPosition)
	assert.Equal(t, 1, *second.WaitlistPosition)
}

func TestAuditDoesNotConsumeSeat(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 1, AllowAudit: true}
	e := &Enrollment{}

	err := e.Audit(section, time.Now())
	require.NoError(t, err)
	assert.Equal(t, EnrollmentStatusAuditing, e.Status)
	assert.Equal(t, 1, section.EnrolledCount)

	section.AllowAudit = false
	assert.ErrorIs(t, (&Enrollment{}).Audit(section, time.Now()), ErrAuditingNotAllowed)
}

func TestDropReleasesSeat(t *testing.T) {
	section := &CourseSection{Capacity: 2, EnrolledCount: 2}
	e := &Enrollment{Status: EnrollmentStatusEnrolled}

	e.Drop(section, "schedule conflict", time.Now())
	assert.Equal(t, EnrollmentStatusDropped, e.Status)
	assert.Equal(t, 1, section.EnrolledCount)
	assert.NotNil(t, e.DroppedAt)
	require.NotNil(t, e.DropReason)
	assert.Equal(t, "schedule conflict", *e.DropReason)
}

func TestDropReleasesWaitlistSlot(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 1, WaitlistCapacity: 3, WaitlistCount: 2}
	pos := 2
	e := &Enrollment{Status: EnrollmentStatusWaitlisted, WaitlistPosition: &pos}

	e.Drop(section, "", time.Now())
	assert.Equal(t, EnrollmentStatusDropped, e.Status)
	assert.Equal(t, 1, section.WaitlistCount)
	assert.Nil(t, e.WaitlistPosition)
	assert.Nil(t, e.DropReason)
}

func TestDropFloorsCountersAtZero(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 0}
	e := &Enrollment{Status: EnrollmentStatusEnrolled}

	e.Drop(section, "", time.Now())
	assert.Equal(t, 0, section.EnrolledCount)
}

func TestPromoteFillsFreedSeat(t *testing.T) {
	section := &CourseSection{Capacity: 2, EnrolledCount: 1, WaitlistCapacity: 3, WaitlistCount: 1}
	pos := 1
	e := &Enrollment{Status: EnrollmentStatusWaitlisted, WaitlistPosition: &pos}

	promoted := e.Promote(section, time.Now())
	assert.True(t, promoted)
	assert.Equal(t, EnrollmentStatusEnrolled, e.Status)
	assert.Nil(t, e.WaitlistPosition)
	assert.Equal(t, 2, section.EnrolledCount)
	assert.Equal(t, 0, section.WaitlistCount)
}

func TestPromoteRefusesFullSection(t *testing.T) {
	section := &CourseSection{Capacity: 1, EnrolledCount: 1, WaitlistCount: 1}
	pos := 1
	e := &Enrollment{Status: EnrollmentStatusWaitlisted, WaitlistPosition: &pos}

	assert.False(t, e.Promote(section, time.Now()))
	assert.Equal(t, EnrollmentStatusWaitlisted, e.Status)

	enrolled := &Enrollment{Status: EnrollmentStatusEnrolled}
	assert.False(t, enrolled.Promote(&CourseSection{Capacity: 5}, time.Now()))
}

func TestRenumberWaitlistKeepsRelativeOrder(t *testing.T) {
	p3, p7 := 3, 7
	a := &Enrollment{ID: "a", WaitlistPosition: &p7}
	b := &Enrollment{ID: "b", WaitlistPosition: &p3}
	c := &Enrollment{ID: "c"} // position lost, goes last

	RenumberWaitlist([]*Enrollment{a, b, c})

	require.NotNil(t, b.WaitlistPosition)
	assert.Equal(t, 1, *b.WaitlistPosition)
	assert.Equal(t, 2, *a.WaitlistPosition)
	assert.Equal(t, 3, *c.WaitlistPosition)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, EnrollmentStatusEnrolled.Droppable())
	assert.True(t, EnrollmentStatusWaitlisted.Droppable())
	assert.True(t, EnrollmentStatusAuditing.Droppable())
	assert.False(t, EnrollmentStatusDropped.Droppable())
	assert.False(t, EnrollmentStatusCompleted.Droppable())

	assert.True(t, EnrollmentStatusEnrolled.Gradable())
	assert.True(t, EnrollmentStatusCompleted.Gradable())
	assert.False(t, EnrollmentStatusWaitlisted.Gradable())
}

func TestAvailableSeatsNeverNegative(t *testing.T) {
	section := &CourseSection{Capacity: 2, EnrolledCount: 5}
	assert.Equal(t, 0, section.AvailableSeats())
	assert.True(t, section.IsFull())

	section = &CourseSection{Capacity: 30, EnrolledCount: 12}
	assert.Equal(t, 18, section.AvailableSeats())
}
