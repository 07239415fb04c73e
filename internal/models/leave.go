package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LeaveType enumerates the categories of teacher leave.
type LeaveType string

const (
	LeaveFullDay      LeaveType = "FULL_DAY"
	LeaveHalfDay      LeaveType = "HALF_DAY"
	LeavePermission   LeaveType = "PERMISSION"
	LeaveOnDuty       LeaveType = "ON_DUTY"
	LeaveInchargeDuty LeaveType = "INCHARGE_DUTY"
)

// Duty reports whether the leave keeps the teacher on campus but unavailable
// as a substitute.
func (t LeaveType) Duty() bool {
	return t == LeaveOnDuty || t == LeaveInchargeDuty
}

// LeaveStatus enumerates the approval workflow states.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

// LeaveRequest represents a teacher's leave for a single calendar date.
// Periods applies to PERMISSION leave only and stores the explicit period
// indexes the teacher will miss.
type LeaveRequest struct {
	ID         string         `db:"id" json:"id"`
	SchoolID   string         `db:"school_id" json:"school_id"`
	TeacherID  string         `db:"teacher_id" json:"teacher_id"`
	Date       time.Time      `db:"date" json:"date"`
	Type       LeaveType      `db:"type" json:"type"`
	Status     LeaveStatus    `db:"status" json:"status"`
	Periods    types.JSONText `db:"periods" json:"periods,omitempty"`
	Reason     *string        `db:"reason" json:"reason,omitempty"`
	ApprovedBy *string        `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// PeriodList decodes the explicit period indexes for PERMISSION leave.
func (l *LeaveRequest) PeriodList() []int {
	if len(l.Periods) == 0 {
		return nil
	}
	var periods []int
	if err := json.Unmarshal(l.Periods, &periods); err != nil {
		return nil
	}
	return periods
}

// LeaveFilter captures query options for listing leave requests.
type LeaveFilter struct {
	SchoolID  string
	TeacherID string
	Date      *time.Time
	Status    *LeaveStatus
	Page      int
	PageSize  int
}
