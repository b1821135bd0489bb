package models

import "time"

// Department groups courses under an academic unit.
type Department struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	Description    *string   `db:"description" json:"description,omitempty"`
	HeadID         *string   `db:"head_id" json:"head_id,omitempty"`
	OfficeLocation *string   `db:"office_location" json:"office_location,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
