package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SchedulingConfig stores the per-school constraint parameters shared by the
// timetable and substitution engines. One row per school; the engines refuse
// to run without it.
type SchedulingConfig struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`

	// Timetable limits.
	PeriodsPerDay        int  `db:"periods_per_day" json:"periods_per_day"`
	LunchPeriod          int  `db:"lunch_period" json:"lunch_period"`
	MaxPeriodsPerDay     int  `db:"max_periods_per_day" json:"max_periods_per_day"`
	MaxPeriodsPerWeek    int  `db:"max_periods_per_week" json:"max_periods_per_week"`
	MaxConsecutive       int  `db:"max_consecutive" json:"max_consecutive"`
	EnforceRoomConflicts bool `db:"enforce_room_conflicts" json:"enforce_room_conflicts"`

	// Optional period lists favouring light/lab subjects, stored as JSON
	// arrays of period indexes.
	LightPeriods types.JSONText `db:"light_periods" json:"light_periods"`
	LabPeriods   types.JSONText `db:"lab_periods" json:"lab_periods"`

	// Substitution limits.
	MaxSubsPerDay          int  `db:"max_subs_per_day" json:"max_subs_per_day"`
	MaxConsecutiveSubs     int  `db:"max_consecutive_subs" json:"max_consecutive_subs"`
	PreventBackToBack      bool `db:"prevent_back_to_back" json:"prevent_back_to_back"`
	WingPriority           bool `db:"wing_priority" json:"wing_priority"`
	ExcludeVicePrincipal   bool `db:"exclude_vice_principal" json:"exclude_vice_principal"`
	ExcludePrincipal       bool `db:"exclude_principal" json:"exclude_principal"`
	LeaveDeadlineHour      int  `db:"leave_deadline_hour" json:"leave_deadline_hour"`
	LeaveDeadlineMinute    int  `db:"leave_deadline_minute" json:"leave_deadline_minute"`
	EnforceLeaveDeadline   bool `db:"enforce_leave_deadline" json:"enforce_leave_deadline"`

	// Substitution scoring weights.
	BaseScore           float64 `db:"base_score" json:"base_score"`
	SubjectMatchBonus   float64 `db:"subject_match_bonus" json:"subject_match_bonus"`
	FamiliarityBonus    float64 `db:"familiarity_bonus" json:"familiarity_bonus"`
	PeriodGapPenalty    float64 `db:"period_gap_penalty" json:"period_gap_penalty"`
	SubLoadPenalty      float64 `db:"sub_load_penalty" json:"sub_load_penalty"`
	ConsecutivePenalty  float64 `db:"consecutive_penalty" json:"consecutive_penalty"`
	OverloadPenalty     float64 `db:"overload_penalty" json:"overload_penalty"`
	WingMatchBonus      float64 `db:"wing_match_bonus" json:"wing_match_bonus"`

	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LightPeriodList decodes the configured light-subject periods, best effort.
func (c *SchedulingConfig) LightPeriodList() []int {
	return decodeConfigPeriods(c.LightPeriods)
}

// LabPeriodList decodes the configured lab periods, best effort.
func (c *SchedulingConfig) LabPeriodList() []int {
	return decodeConfigPeriods(c.LabPeriods)
}

func decodeConfigPeriods(raw types.JSONText) []int {
	if len(raw) == 0 {
		return nil
	}
	var periods []int
	if err := json.Unmarshal(raw, &periods); err != nil {
		return nil
	}
	return periods
}
