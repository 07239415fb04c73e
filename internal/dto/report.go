package dto

// CreateReportRequest enqueues an asynchronous export.
type CreateReportRequest struct {
	Type      string `json:"type" validate:"required,oneof=timetable substitutions"`
	SchoolID  string `json:"schoolId" validate:"required"`
	WingID    string `json:"wingId"`
	SectionID string `json:"sectionId"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
}
