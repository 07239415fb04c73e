package dto

import "github.com/campusops/school-ops-api/internal/models"

// GenerateTimetableRequest instructs the engine to build a weekly timetable
// for the given sections.
type GenerateTimetableRequest struct {
	SchoolID   string   `json:"schoolId" validate:"required"`
	WingID     string   `json:"wingId"`
	SectionIDs []string `json:"sectionIds" validate:"required,min=1,dive,required"`
}

// GenerateTimetableResponse returns the proposed slots, accumulated conflicts
// and the 0-100 quality score. Persisting the slots is the caller's choice
// via the commit flag on the handler.
type GenerateTimetableResponse struct {
	Slots     []models.TimetableSlot    `json:"slots"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
	Score     float64                   `json:"score"`
}

// ValidateTimetableResponse reports rule violations in the persisted timetable.
type ValidateTimetableResponse struct {
	Conflicts []models.ScheduleConflict `json:"conflicts"`
	Valid     bool                      `json:"valid"`
}

// FreezeTimetableRequest publishes the current timetable as a master snapshot.
type FreezeTimetableRequest struct {
	SchoolID string `json:"schoolId" validate:"required"`
	WingID   string `json:"wingId"`
	Name     string `json:"name" validate:"required"`
}

// FreezeStatusResponse reports whether a scope is currently frozen.
type FreezeStatusResponse struct {
	Frozen   bool                    `json:"frozen"`
	Snapshot *models.MasterTimetable `json:"snapshot,omitempty"`
}
