package models

import "time"

// Section represents one class-section instance (e.g. "8-B").
type Section struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	WingID         *string   `db:"wing_id" json:"wing_id,omitempty"`
	Name           string    `db:"name" json:"name"`
	Grade          int       `db:"grade" json:"grade"`
	RoomID         *string   `db:"room_id" json:"room_id,omitempty"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter captures filters for listing sections.
type SectionFilter struct {
	SchoolID  string
	WingID    string
	Grade     *int
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
