package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SectionStatus represents the registration state of a course section.
type SectionStatus string

const (
	SectionStatusOpen      SectionStatus = "Open"
	SectionStatusClosed    SectionStatus = "Closed"
	SectionStatusCancelled SectionStatus = "Cancelled"
)

// Course is a catalog entry offered by a department.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description,omitempty"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Credits      float64   `db:"credits" json:"credits"`
	Level        *string   `db:"level" json:"level,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CoursePrerequisite is one edge in the prerequisite graph.
type CoursePrerequisite struct {
	CourseID       string    `db:"course_id" json:"course_id"`
	PrerequisiteID string    `db:"prerequisite_id" json:"prerequisite_id"`
	MinimumGrade   string    `db:"minimum_grade" json:"minimum_grade"`
	Mandatory      bool      `db:"mandatory" json:"mandatory"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Schedule describes the weekly meeting pattern of a section. Times are
// zero-padded "HH:MM" strings; End is exclusive.
type Schedule struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// Value serialises the schedule for a JSONB column.
func (s Schedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan deserialises the schedule from a JSONB column.
func (s *Schedule) Scan(src interface{}) error {
	if src == nil {
		*s = Schedule{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("schedule: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// Overlaps reports whether two schedules collide: their day sets intersect
// and their half-open time intervals overlap.
func (s Schedule) Overlaps(other Schedule) bool {
	if len(s.Days) == 0 || len(other.Days) == 0 {
		return false
	}
	daySet := make(map[string]struct{}, len(s.Days))
	for _, d := range s.Days {
		daySet[d] = struct{}{}
	}
	shared := false
	for _, d := range other.Days {
		if _, ok := daySet[d]; ok {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}

	myStart, okMyStart := minutesOfDay(s.Start)
	myEnd, okMyEnd := minutesOfDay(s.End)
	otherStart, okOtherStart := minutesOfDay(other.Start)
	otherEnd, okOtherEnd := minutesOfDay(other.End)
	// A corrupt time on a shared day is reported as a conflict rather than
	// silently clearing the pair.
	if !okMyStart || !okMyEnd || !okOtherStart || !okOtherEnd {
		return true
	}
	return !(myEnd <= otherStart || otherEnd <= myStart)
}

func minutesOfDay(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// CourseSection is a scheduled offering of a course within a term.
type CourseSection struct {
	ID               string        `db:"id" json:"id"`
	CourseID         string        `db:"course_id" json:"course_id"`
	SectionCode      string        `db:"section_code" json:"section_code"`
	Term             string        `db:"term" json:"term"`
	InstructorID     *string       `db:"instructor_id" json:"instructor_id,omitempty"`
	Capacity         int           `db:"capacity" json:"capacity"`
	EnrolledCount    int           `db:"enrolled_count" json:"enrolled_count"`
	WaitlistCapacity int           `db:"waitlist_capacity" json:"waitlist_capacity"`
	WaitlistCount    int           `db:"waitlist_count" json:"waitlist_count"`
	Schedule         Schedule      `db:"schedule" json:"schedule"`
	StartDate        time.Time     `db:"start_date" json:"start_date"`
	EndDate          time.Time     `db:"end_date" json:"end_date"`
	DeliveryMode     string        `db:"delivery_mode" json:"delivery_mode"`
	Status           SectionStatus `db:"status" json:"status"`
	AllowAudit       bool          `db:"allow_audit" json:"allow_audit"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether every seat is taken.
func (s *CourseSection) IsFull() bool {
	return s.EnrolledCount >= s.Capacity
}

// HasWaitlistSpace reports whether the waitlist can accept another student.
func (s *CourseSection) HasWaitlistSpace() bool {
	return s.WaitlistCount < s.WaitlistCapacity
}

// AvailableSeats returns the number of open seats, never negative.
func (s *CourseSection) AvailableSeats() int {
	if s.EnrolledCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.EnrolledCount
}

// SectionDetail enriches CourseSection with catalog context.
type SectionDetail struct {
	CourseSection
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseTitle    string  `db:"course_title" json:"course_title"`
	Credits        float64 `db:"credits" json:"credits"`
	InstructorName *string `db:"instructor_name" json:"instructor_name,omitempty"`
}

// CourseFilter provides filters for listing catalog entries.
type CourseFilter struct {
	DepartmentID string
	Search       string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	CourseID     string
	Term         string
	DepartmentID string
	Search       string
	Status       SectionStatus
	Page         int
	PageSize     int
}
