package models

import (
	"errors"
	"sort"
	"time"
)

// Errors returned by enrollment state transitions.
var (
	ErrSectionRequired    = errors.New("section required")
	ErrWaitlistFull       = errors.New("waitlist is full")
	ErrNotDroppable       = errors.New("enrollment is not active")
	ErrNotWaitlisted      = errors.New("enrollment is not waitlisted")
	ErrSectionAtCapacity  = errors.New("section is at capacity")
	ErrAuditingNotAllowed = errors.New("section does not allow auditing")
)

// Enroll places the enrollment into the section, taking a seat when one is
// free and falling back to the waitlist otherwise. Counter mutations on the
// section must be persisted in the same transaction as the enrollment row.
func (e *Enrollment) Enroll(section *CourseSection, now time.Time) error {
	if section == nil {
		return ErrSectionRequired
	}
	if section.IsFull() {
		if !section.HasWaitlistSpace() {
			return ErrWaitlistFull
		}
		position := section.WaitlistCount + 1
		e.Status = EnrollmentStatusWaitlisted
		e.WaitlistPosition = &position
		e.WaitlistedAt = &now
		section.WaitlistCount++
		return nil
	}
	e.Status = EnrollmentStatusEnrolled
	e.EnrolledAt = &now
	section.EnrolledCount++
	return nil
}

// Audit marks the enrollment as auditing without consuming a seat.
func (e *Enrollment) Audit(section *CourseSection, now time.Time) error {
	if section == nil {
		return ErrSectionRequired
	}
	if !section.AllowAudit {
		return ErrAuditingNotAllowed
	}
	e.Status = EnrollmentStatusAuditing
	e.EnrolledAt = &now
	return nil
}

// Drop releases the enrollment's seat or waitlist slot (floored at zero) and
// marks it Dropped. Callers must verify the status is droppable first; the
// transition itself does not guard against double drops.
func (e *Enrollment) Drop(section *CourseSection, reason string, now time.Time) {
	switch e.Status {
	case EnrollmentStatusEnrolled:
		if section.EnrolledCount > 0 {
			section.EnrolledCount--
		}
	case EnrollmentStatusWaitlisted:
		if section.WaitlistCount > 0 {
			section.WaitlistCount--
		}
	}
	e.Status = EnrollmentStatusDropped
	e.DroppedAt = &now
	e.WaitlistPosition = nil
	if reason != "" {
		e.DropReason = &reason
	}
}

// Promote moves a waitlisted enrollment into an open seat. Returns false
// when the enrollment is not waitlisted or the section has no free seat.
func (e *Enrollment) Promote(section *CourseSection, now time.Time) bool {
	if e.Status != EnrollmentStatusWaitlisted || section.IsFull() {
		return false
	}
	e.Status = EnrollmentStatusEnrolled
	e.EnrolledAt = &now
	e.WaitlistPosition = nil
	if section.WaitlistCount > 0 {
		section.WaitlistCount--
	}
	section.EnrolledCount++
	return true
}

// RenumberWaitlist reassigns contiguous 1..N positions to the given
// waitlisted enrollments, preserving their current relative order.
func RenumberWaitlist(waitlisted []*Enrollment) {
	sort.SliceStable(waitlisted, func(i, j int) bool {
		pi, pj := waitlisted[i].WaitlistPosition, waitlisted[j].WaitlistPosition
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})
	for i, e := range waitlisted {
		position := i + 1
		e.WaitlistPosition = &position
	}
}
