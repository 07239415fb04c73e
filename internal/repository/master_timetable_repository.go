package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const masterTimetableColumns = `id, school_id, wing_id, name, active, frozen_by, frozen_at, unfrozen_at`

// MasterTimetableRepository manages freeze snapshots.
type MasterTimetableRepository struct {
	db *sqlx.DB
}

// NewMasterTimetableRepository constructs a MasterTimetableRepository.
func NewMasterTimetableRepository(db *sqlx.DB) *MasterTimetableRepository {
	return &MasterTimetableRepository{db: db}
}

// ListActive returns the active freeze snapshots for a school.
func (r *MasterTimetableRepository) ListActive(ctx context.Context, schoolID string) ([]models.MasterTimetable, error) {
	query := fmt.Sprintf("SELECT %s FROM master_timetables WHERE school_id = $1 AND active = TRUE ORDER BY frozen_at DESC", masterTimetableColumns)
	var snapshots []models.MasterTimetable
	if err := r.db.SelectContext(ctx, &snapshots, query, schoolID); err != nil {
		return nil, fmt.Errorf("list active snapshots: %w", err)
	}
	return snapshots, nil
}

// Create records a new freeze snapshot.
func (r *MasterTimetableRepository) Create(ctx context.Context, snapshot *models.MasterTimetable) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.FrozenAt.IsZero() {
		snapshot.FrozenAt = time.Now().UTC()
	}
	snapshot.Active = true

	const query = `INSERT INTO master_timetables (id, school_id, wing_id, name, active, frozen_by, frozen_at)
		VALUES (:id, :school_id, :wing_id, :name, :active, :frozen_by, :frozen_at)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// Deactivate ends a freeze snapshot.
func (r *MasterTimetableRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE master_timetables SET active = FALSE, unfrozen_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate snapshot: %w", err)
	}
	return nil
}
