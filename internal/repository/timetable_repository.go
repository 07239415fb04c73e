package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const timetableColumns = `id, school_id, section_id, day_of_week, period, subject_id, teacher_id, room_id, created_at`

// TimetableRepository manages persistence for timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListBySchool returns all persisted slots for a school, ordered by section,
// day and period so downstream scans are deterministic.
func (r *TimetableRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE school_id = $1 ORDER BY section_id, day_of_week, period", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, schoolID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// ListBySection returns the weekly slots for one section.
func (r *TimetableRepository) ListBySection(ctx context.Context, sectionID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE section_id = $1 ORDER BY day_of_week, period", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section slots: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns the weekly slots taught by one teacher.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE teacher_id = $1 ORDER BY day_of_week, period", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	return slots, nil
}

// ListByTeacherAndDay returns a teacher's slots for one day of the week.
func (r *TimetableRepository) ListByTeacherAndDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_slots WHERE teacher_id = $1 AND day_of_week = $2 ORDER BY period", timetableColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list teacher day slots: %w", err)
	}
	return slots, nil
}

// ReplaceForSections atomically replaces the persisted timetable of the given
// sections with the provided slots.
func (r *TimetableRepository) ReplaceForSections(ctx context.Context, sectionIDs []string, slots []models.TimetableSlot) error {
	if len(sectionIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleteQuery, args, err := sqlx.In("DELETE FROM timetable_slots WHERE section_id IN (?)", sectionIDs)
	if err != nil {
		return fmt.Errorf("build timetable delete: %w", err)
	}
	deleteQuery = tx.Rebind(deleteQuery)
	if _, err = tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("delete timetable slots: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO timetable_slots (id, school_id, section_id, day_of_week, period, subject_id, teacher_id, room_id, created_at)
		VALUES (:id, :school_id, :section_id, :day_of_week, :period, :subject_id, :teacher_id, :room_id, :created_at)`
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insert, slots[i]); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable replace: %w", err)
	}
	return nil
}

// HasTaughtSection reports whether the teacher has any teaching history with
// the section, looking at both the live timetable and past substitutions.
func (r *TimetableRepository) HasTaughtSection(ctx context.Context, teacherID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM timetable_slots WHERE teacher_id = $1 AND section_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check teaching history: %w", err)
	}
	return true, nil
}
