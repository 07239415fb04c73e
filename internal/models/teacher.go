package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TeacherRole represents the staff role of a teacher record.
type TeacherRole string

const (
	TeacherRoleTeacher       TeacherRole = "TEACHER"
	TeacherRoleVicePrincipal TeacherRole = "VICE_PRINCIPAL"
	TeacherRolePrincipal     TeacherRole = "PRINCIPAL"
)

// Senior reports whether the role is a leadership role that configuration may
// exclude from substitution pools.
func (r TeacherRole) Senior() bool {
	return r == TeacherRoleVicePrincipal || r == TeacherRolePrincipal
}

// Teacher represents an instructor record.
type Teacher struct {
	ID        string      `db:"id" json:"id"`
	SchoolID  string      `db:"school_id" json:"school_id"`
	WingID    *string     `db:"wing_id" json:"wing_id,omitempty"`
	Email     string      `db:"email" json:"email"`
	FullName  string      `db:"full_name" json:"full_name"`
	Role      TeacherRole `db:"role" json:"role"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// TeacherSubject maps a teacher to a subject they are qualified to teach.
type TeacherSubject struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherPreference stores optional per-teacher scheduling preferences.
type TeacherPreference struct {
	ID               string         `db:"id" json:"id"`
	TeacherID        string         `db:"teacher_id" json:"teacher_id"`
	PreferredPeriods types.JSONText `db:"preferred_periods" json:"preferred_periods"`
	AvoidedPeriods   types.JSONText `db:"avoided_periods" json:"avoided_periods"`
	MaxPerDay        int            `db:"max_per_day" json:"max_per_day"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// PreferredList decodes the preferred period indexes, best effort.
func (p *TeacherPreference) PreferredList() []int {
	return decodePeriodList(p.PreferredPeriods)
}

// AvoidedList decodes the avoided period indexes, best effort.
func (p *TeacherPreference) AvoidedList() []int {
	return decodePeriodList(p.AvoidedPeriods)
}

func decodePeriodList(raw types.JSONText) []int {
	if len(raw) == 0 {
		return nil
	}
	var periods []int
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil
	}
	return periods
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	SchoolID  string
	WingID    string
	Role      *TeacherRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
