package dto

// UpdateSchedulingConfigRequest replaces the per-school constraint set.
// Primary limits are required: the engines never invent them.
type UpdateSchedulingConfigRequest struct {
	SchoolID             string  `json:"schoolId" validate:"required"`
	PeriodsPerDay        int     `json:"periodsPerDay" validate:"required,min=1,max=16"`
	LunchPeriod          int     `json:"lunchPeriod" validate:"required,min=1,max=16"`
	MaxPeriodsPerDay     int     `json:"maxPeriodsPerDay" validate:"required,min=1,max=16"`
	MaxPeriodsPerWeek    int     `json:"maxPeriodsPerWeek" validate:"required,min=1"`
	MaxConsecutive       int     `json:"maxConsecutive" validate:"required,min=1,max=16"`
	EnforceRoomConflicts bool    `json:"enforceRoomConflicts"`
	LightPeriods         []int   `json:"lightPeriods" validate:"omitempty,dive,min=1"`
	LabPeriods           []int   `json:"labPeriods" validate:"omitempty,dive,min=1"`
	MaxSubsPerDay        int     `json:"maxSubsPerDay" validate:"required,min=1"`
	MaxConsecutiveSubs   int     `json:"maxConsecutiveSubs" validate:"required,min=1"`
	PreventBackToBack    bool    `json:"preventBackToBack"`
	WingPriority         bool    `json:"wingPriority"`
	ExcludeVicePrincipal bool    `json:"excludeVicePrincipal"`
	ExcludePrincipal     bool    `json:"excludePrincipal"`
	LeaveDeadlineHour    int     `json:"leaveDeadlineHour" validate:"min=0,max=23"`
	LeaveDeadlineMinute  int     `json:"leaveDeadlineMinute" validate:"min=0,max=59"`
	EnforceLeaveDeadline bool    `json:"enforceLeaveDeadline"`
	BaseScore            float64 `json:"baseScore" validate:"required,gt=0"`
	SubjectMatchBonus    float64 `json:"subjectMatchBonus" validate:"min=0"`
	FamiliarityBonus     float64 `json:"familiarityBonus" validate:"min=0"`
	PeriodGapPenalty     float64 `json:"periodGapPenalty" validate:"min=0"`
	SubLoadPenalty       float64 `json:"subLoadPenalty" validate:"min=0"`
	ConsecutivePenalty   float64 `json:"consecutivePenalty" validate:"min=0"`
	OverloadPenalty      float64 `json:"overloadPenalty" validate:"min=0"`
	WingMatchBonus       float64 `json:"wingMatchBonus" validate:"min=0"`
}
