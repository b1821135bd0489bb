package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionEnroll          = "ENROLL"
	AuditActionEnrollOverride  = "ENROLL_OVERRIDE"
	AuditActionDrop            = "DROP"
	AuditActionWaitlistPromote = "WAITLIST_PROMOTE"
	AuditActionGradeChange     = "GRADE_CHANGE"
	AuditActionGPARecalc       = "GPA_RECALC"
	AuditActionReconcile       = "SECTION_RECONCILE"

	AuditActionTranscriptDecision = "TRANSCRIPT_DECISION"
	AuditActionTranscriptIssue    = "TRANSCRIPT_ISSUE"
	AuditActionTranscriptDownload = "TRANSCRIPT_DOWNLOAD"
)

// AuditLog represents an append-only audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter scopes audit log listings.
type AuditFilter struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Page       int
	PageSize   int
}
