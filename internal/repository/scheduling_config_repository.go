package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const schedulingConfigColumns = `id, school_id, periods_per_day, lunch_period, max_periods_per_day,
	max_periods_per_week, max_consecutive, enforce_room_conflicts, light_periods, lab_periods,
	max_subs_per_day, max_consecutive_subs, prevent_back_to_back, wing_priority,
	exclude_vice_principal, exclude_principal, leave_deadline_hour, leave_deadline_minute,
	enforce_leave_deadline, base_score, subject_match_bonus, familiarity_bonus,
	period_gap_penalty, sub_load_penalty, consecutive_penalty, overload_penalty,
	wing_match_bonus, updated_by, created_at, updated_at`

// SchedulingConfigRepository manages the per-school scheduling configuration.
type SchedulingConfigRepository struct {
	db *sqlx.DB
}

// NewSchedulingConfigRepository constructs a SchedulingConfigRepository.
func NewSchedulingConfigRepository(db *sqlx.DB) *SchedulingConfigRepository {
	return &SchedulingConfigRepository{db: db}
}

// GetBySchool fetches the configuration row for a school. Returns
// sql.ErrNoRows when the school has no configuration.
func (r *SchedulingConfigRepository) GetBySchool(ctx context.Context, schoolID string) (*models.SchedulingConfig, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduling_configs WHERE school_id = $1", schedulingConfigColumns)
	var cfg models.SchedulingConfig
	if err := r.db.GetContext(ctx, &cfg, query, schoolID); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert creates or replaces the configuration for a school.
func (r *SchedulingConfigRepository) Upsert(ctx context.Context, cfg *models.SchedulingConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	const query = `INSERT INTO scheduling_configs (id, school_id, periods_per_day, lunch_period,
		max_periods_per_day, max_periods_per_week, max_consecutive, enforce_room_conflicts,
		light_periods, lab_periods, max_subs_per_day, max_consecutive_subs, prevent_back_to_back,
		wing_priority, exclude_vice_principal, exclude_principal, leave_deadline_hour,
		leave_deadline_minute, enforce_leave_deadline, base_score, subject_match_bonus,
		familiarity_bonus, period_gap_penalty, sub_load_penalty, consecutive_penalty,
		overload_penalty, wing_match_bonus, updated_by, created_at, updated_at)
		VALUES (:id, :school_id, :periods_per_day, :lunch_period, :max_periods_per_day,
		:max_periods_per_week, :max_consecutive, :enforce_room_conflicts, :light_periods,
		:lab_periods, :max_subs_per_day, :max_consecutive_subs, :prevent_back_to_back,
		:wing_priority, :exclude_vice_principal, :exclude_principal, :leave_deadline_hour,
		:leave_deadline_minute, :enforce_leave_deadline, :base_score, :subject_match_bonus,
		:familiarity_bonus, :period_gap_penalty, :sub_load_penalty, :consecutive_penalty,
		:overload_penalty, :wing_match_bonus, :updated_by, :created_at, :updated_at)
		ON CONFLICT (school_id) DO UPDATE SET
		periods_per_day = EXCLUDED.periods_per_day,
		lunch_period = EXCLUDED.lunch_period,
		max_periods_per_day = EXCLUDED.max_periods_per_day,
		max_periods_per_week = EXCLUDED.max_periods_per_week,
		max_consecutive = EXCLUDED.max_consecutive,
		enforce_room_conflicts = EXCLUDED.enforce_room_conflicts,
		light_periods = EXCLUDED.light_periods,
		lab_periods = EXCLUDED.lab_periods,
		max_subs_per_day = EXCLUDED.max_subs_per_day,
		max_consecutive_subs = EXCLUDED.max_consecutive_subs,
		prevent_back_to_back = EXCLUDED.prevent_back_to_back,
		wing_priority = EXCLUDED.wing_priority,
		exclude_vice_principal = EXCLUDED.exclude_vice_principal,
		exclude_principal = EXCLUDED.exclude_principal,
		leave_deadline_hour = EXCLUDED.leave_deadline_hour,
		leave_deadline_minute = EXCLUDED.leave_deadline_minute,
		enforce_leave_deadline = EXCLUDED.enforce_leave_deadline,
		base_score = EXCLUDED.base_score,
		subject_match_bonus = EXCLUDED.subject_match_bonus,
		familiarity_bonus = EXCLUDED.familiarity_bonus,
		period_gap_penalty = EXCLUDED.period_gap_penalty,
		sub_load_penalty = EXCLUDED.sub_load_penalty,
		consecutive_penalty = EXCLUDED.consecutive_penalty,
		overload_penalty = EXCLUDED.overload_penalty,
		wing_match_bonus = EXCLUDED.wing_match_bonus,
		updated_by = EXCLUDED.updated_by,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert scheduling config: %w", err)
	}
	return nil
}
