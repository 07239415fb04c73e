package dto

// CreateLeaveRequest files a leave request for a teacher on one date.
// Periods is required for PERMISSION leave and ignored otherwise.
type CreateLeaveRequest struct {
	SchoolID  string `json:"schoolId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type" validate:"required,oneof=FULL_DAY HALF_DAY PERMISSION ON_DUTY INCHARGE_DUTY"`
	Periods   []int  `json:"periods" validate:"omitempty,min=1,dive,min=1"`
	Reason    string `json:"reason"`
}

// ReviewLeaveRequest approves or rejects a pending leave request.
type ReviewLeaveRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}
