package dto

import "github.com/campusops/school-ops-api/internal/models"

// GenerateSubstitutionsRequest asks the engine to cover approved leaves for a
// date. Date uses YYYY-MM-DD.
type GenerateSubstitutionsRequest struct {
	SchoolID          string `json:"schoolId" validate:"required"`
	Date              string `json:"date" validate:"required,datetime=2006-01-02"`
	EnforceDeadline   *bool  `json:"enforceDeadline"`
	MaxSubsPerTeacher *int   `json:"maxSubsPerTeacher" validate:"omitempty,min=1"`
}

// GenerateSubstitutionsResponse returns proposed assignments, the periods
// that could not be covered, and advisory top-level errors (e.g. a missed
// leave deadline). Errors do not abort generation.
type GenerateSubstitutionsResponse struct {
	Substitutions []models.Substitution  `json:"substitutions"`
	Skipped       []models.SkippedPeriod `json:"skipped"`
	Errors        []string               `json:"errors,omitempty"`
}
