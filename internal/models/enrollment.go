package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Dropped, Completed, Withdrawn and Failed are
// terminal.
const (
	EnrollmentStatusPending    EnrollmentStatus = "Pending"
	EnrollmentStatusEnrolled   EnrollmentStatus = "Enrolled"
	EnrollmentStatusWaitlisted EnrollmentStatus = "Waitlisted"
	EnrollmentStatusDropped    EnrollmentStatus = "Dropped"
	EnrollmentStatusCompleted  EnrollmentStatus = "Completed"
	EnrollmentStatusWithdrawn  EnrollmentStatus = "Withdrawn"
	EnrollmentStatusFailed     EnrollmentStatus = "Failed"
	EnrollmentStatusAuditing   EnrollmentStatus = "Auditing"
)

// Droppable reports whether a drop is allowed from the given status.
func (s EnrollmentStatus) Droppable() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusWaitlisted, EnrollmentStatusAuditing:
		return true
	}
	return false
}

// Gradable reports whether a final grade may be recorded for the status.
func (s EnrollmentStatus) Gradable() bool {
	return s == EnrollmentStatusEnrolled || s == EnrollmentStatusCompleted
}

// Enrollment links one student to one course section; the pair is unique.
// Grade holds either a letter grade or a numeric-percentage string;
// GradePoints is derived from letter grades only.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	SectionID        string           `db:"section_id" json:"section_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	WaitlistPosition *int             `db:"waitlist_position" json:"waitlist_position,omitempty"`
	Grade            *string          `db:"grade" json:"grade,omitempty"`
	GradePoints      *float64         `db:"grade_points" json:"grade_points,omitempty"`
	EnrolledAt       *time.Time       `db:"enrolled_at" json:"enrolled_at,omitempty"`
	WaitlistedAt     *time.Time       `db:"waitlisted_at" json:"waitlisted_at,omitempty"`
	DroppedAt        *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	GradedAt         *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	DropReason       *string          `db:"drop_reason" json:"drop_reason,omitempty"`
	OverrideBy       *string          `db:"override_by" json:"override_by,omitempty"`
	OverrideAt       *time.Time       `db:"override_at" json:"override_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with section and catalog context.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string   `db:"course_code" json:"course_code"`
	CourseTitle string   `db:"course_title" json:"course_title"`
	SectionCode string   `db:"section_code" json:"section_code"`
	Term        string   `db:"term" json:"term"`
	Credits     float64  `db:"credits" json:"credits"`
	Schedule    Schedule `db:"schedule" json:"schedule"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SectionID string
	Term      string
	Status    EnrollmentStatus
	Graded    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// EligibilityReport aggregates the outcome of the enrollment checks.
// Errors block enrollment; warnings do not.
type EligibilityReport struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// EnrollmentSummary aggregates a student's registration state.
type EnrollmentSummary struct {
	EnrolledCount   int     `json:"enrolled_count"`
	WaitlistedCount int     `json:"waitlisted_count"`
	CompletedCount  int     `json:"completed_count"`
	TotalCredits    float64 `json:"total_credits"`
	GPA             float64 `json:"gpa"`
}
