package models

import "time"

// TranscriptRequestStatus tracks the lifecycle of a transcript request.
type TranscriptRequestStatus string

const (
	TranscriptRequestPending  TranscriptRequestStatus = "Pending"
	TranscriptRequestApproved TranscriptRequestStatus = "Approved"
	TranscriptRequestRejected TranscriptRequestStatus = "Rejected"
	TranscriptRequestIssued   TranscriptRequestStatus = "Issued"
)

// TranscriptRequest gates generation of official transcripts.
type TranscriptRequest struct {
	ID            string                  `db:"id" json:"id"`
	StudentID     string                  `db:"student_id" json:"student_id"`
	Status        TranscriptRequestStatus `db:"status" json:"status"`
	Purpose       *string                 `db:"purpose" json:"purpose,omitempty"`
	ProcessedBy   *string                 `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt   *time.Time              `db:"processed_at" json:"processed_at,omitempty"`
	DecisionNotes *string                 `db:"decision_notes" json:"decision_notes,omitempty"`
	IssuedAt      *time.Time              `db:"issued_at" json:"issued_at,omitempty"`
	Filename      *string                 `db:"filename" json:"filename,omitempty"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at" json:"updated_at"`
}

// TranscriptRow is one graded course line on a transcript.
type TranscriptRow struct {
	Term        string   `db:"term" json:"term"`
	CourseCode  string   `db:"course_code" json:"course_code"`
	CourseTitle string   `db:"course_title" json:"course_title"`
	Credits     float64  `db:"credits" json:"credits"`
	Grade       string   `db:"grade" json:"grade"`
	GradePoints *float64 `db:"grade_points" json:"grade_points,omitempty"`
}

// TranscriptTerm groups transcript rows under one term with its GPA.
type TranscriptTerm struct {
	Term    string          `json:"term"`
	Rows    []TranscriptRow `json:"rows"`
	TermGPA float64         `json:"term_gpa"`
}

// Transcript is the full read model rendered into documents.
type Transcript struct {
	StudentName   string           `json:"student_name"`
	StudentNumber string           `json:"student_number"`
	Program       string           `json:"program"`
	Official      bool             `json:"official"`
	Terms         []TranscriptTerm `json:"terms"`
	CumulativeGPA float64          `json:"cumulative_gpa"`
	CreditsEarned float64          `json:"credits_earned"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
