package models

import "time"

// Academic statuses a student profile can hold.
const (
	AcademicStatusActive    = "Active"
	AcademicStatusSuspended = "Suspended"
	AcademicStatusGraduated = "Graduated"
	AcademicStatusWithdrawn = "Withdrawn"
)

// StudentProfile holds registration state for one student user.
// GPA and TotalCreditsEarned are cached aggregates recomputed from
// enrollments; they are never treated as source of truth.
type StudentProfile struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	StudentNumber      string    `db:"student_number" json:"student_number"`
	Program            *string   `db:"program" json:"program,omitempty"`
	Major              *string   `db:"major" json:"major,omitempty"`
	EnrollmentYear     int       `db:"enrollment_year" json:"enrollment_year"`
	AcademicStatus     string    `db:"academic_status" json:"academic_status"`
	GPA                float64   `db:"gpa" json:"gpa"`
	TotalCreditsEarned float64   `db:"total_credits_earned" json:"total_credits_earned"`
	AdvisorID          *string   `db:"advisor_id" json:"advisor_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the profile with its owning user.
type StudentDetail struct {
	StudentProfile
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	AcademicStatus string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
