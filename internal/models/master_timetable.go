package models

import "time"

// MasterTimetable is a named freeze snapshot for a school (optionally scoped
// to a wing). While an active snapshot exists for a scope, timetable
// generation for that scope is blocked.
type MasterTimetable struct {
	ID         string     `db:"id" json:"id"`
	SchoolID   string     `db:"school_id" json:"school_id"`
	WingID     *string    `db:"wing_id" json:"wing_id,omitempty"`
	Name       string     `db:"name" json:"name"`
	Active     bool       `db:"active" json:"active"`
	FrozenBy   string     `db:"frozen_by" json:"frozen_by"`
	FrozenAt   time.Time  `db:"frozen_at" json:"frozen_at"`
	UnfrozenAt *time.Time `db:"unfrozen_at" json:"unfrozen_at,omitempty"`
}

// CoversWing reports whether the snapshot blocks generation for the given
// wing: a school-wide snapshot (no wing) blocks every wing, a wing snapshot
// blocks only its own.
func (m *MasterTimetable) CoversWing(wingID string) bool {
	if m.WingID == nil || *m.WingID == "" {
		return true
	}
	return wingID != "" && *m.WingID == wingID
}
