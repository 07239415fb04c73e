package models

import "time"

// SchoolDays is the number of teaching days in a week (Monday..Saturday).
const SchoolDays = 6

// TimetableSlot is the atomic scheduling unit: one (day, period, section)
// mapped to a subject, teacher and optional room.
type TimetableSlot struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	Period    int       `db:"period" json:"period"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConflictType enumerates scheduling rule violations.
type ConflictType string

const (
	ConflictTeacherOverlap      ConflictType = "TEACHER_CONFLICT"
	ConflictRoomOverlap         ConflictType = "ROOM_CONFLICT"
	ConflictPPWExceeded         ConflictType = "PPW_EXCEEDED"
	ConflictNoTeacher           ConflictType = "NO_TEACHER"
	ConflictDailyLimit          ConflictType = "DAILY_LIMIT_EXCEEDED"
	ConflictConsecutiveLimit    ConflictType = "CONSECUTIVE_LIMIT_EXCEEDED"
	ConflictConstraintViolation ConflictType = "CONSTRAINT_VIOLATION"
)

// ScheduleConflict records a rule violation found during generation or
// validation. Conflicts are accumulated and returned as data, never thrown.
type ScheduleConflict struct {
	Type      ConflictType `json:"type"`
	Message   string       `json:"message"`
	SectionID string       `json:"section_id,omitempty"`
	DayOfWeek int          `json:"day_of_week,omitempty"`
	Period    int          `json:"period,omitempty"`
	SubjectID string       `json:"subject_id,omitempty"`
	TeacherID string       `json:"teacher_id,omitempty"`
	RoomID    string       `json:"room_id,omitempty"`
}

// TimetableFilter captures query options for listing persisted slots.
type TimetableFilter struct {
	SchoolID  string
	SectionID string
	TeacherID string
	DayOfWeek int
}
