package models

import "time"

// Notification types emitted by the registration flows.
const (
	NotificationTypeEnrollment   = "enrollment"
	NotificationTypeGrade        = "grade"
	NotificationTypeAnnouncement = "announcement"
)

// DeliveryOutcome reports what happened to a best-effort notification.
type DeliveryOutcome string

const (
	DeliveryQueued  DeliveryOutcome = "queued"
	DeliveryDropped DeliveryOutcome = "dropped"
	DeliverySkipped DeliveryOutcome = "skipped"
)

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Payload   []byte     `db:"payload" json:"payload,omitempty"`
	Read      bool       `db:"read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// NotificationFilter scopes notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
