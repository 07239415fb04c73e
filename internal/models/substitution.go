package models

import "time"

// Substitution records a substitute teacher covering one vacated period.
// Immutable after creation except for the notification flag, which an
// external notifier owns.
type Substitution struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	Date            time.Time `db:"date" json:"date"`
	Period          int       `db:"period" json:"period"`
	SectionID       string    `db:"section_id" json:"section_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	AbsentTeacherID string    `db:"absent_teacher_id" json:"absent_teacher_id"`
	SubstituteID    string    `db:"substitute_id" json:"substitute_id"`
	LeaveRequestID  string    `db:"leave_request_id" json:"leave_request_id"`
	Score           float64   `db:"score" json:"score"`
	Notified        bool      `db:"notified" json:"notified"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SkippedPeriod explains why a vacated period could not be covered.
type SkippedPeriod struct {
	Period          int    `json:"period"`
	SectionID       string `json:"section_id"`
	SubjectID       string `json:"subject_id"`
	AbsentTeacherID string `json:"absent_teacher_id"`
	Reason          string `json:"reason"`
}

// SubstitutionFilter captures query options for listing substitutions.
type SubstitutionFilter struct {
	SchoolID     string
	Date         *time.Time
	SubstituteID string
	Page         int
	PageSize     int
}
