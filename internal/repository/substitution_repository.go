package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const substitutionColumns = `id, school_id, date, period, section_id, subject_id, absent_teacher_id,
	substitute_id, leave_request_id, score, notified, created_at`

// SubstitutionRepository manages persistence for substitution records.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs a SubstitutionRepository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

// ListByDate returns all substitutions for a school and date ordered by period.
func (r *SubstitutionRepository) ListByDate(ctx context.Context, schoolID string, date time.Time) ([]models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE school_id = $1 AND date = $2 ORDER BY period, section_id", substitutionColumns)
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, schoolID, date); err != nil {
		return nil, fmt.Errorf("list substitutions: %w", err)
	}
	return subs, nil
}

// BulkCreate inserts the generated substitution records in one transaction.
func (r *SubstitutionRepository) BulkCreate(ctx context.Context, subs []models.Substitution) error {
	if len(subs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin substitution insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const insert = `INSERT INTO substitutions (id, school_id, date, period, section_id, subject_id,
		absent_teacher_id, substitute_id, leave_request_id, score, notified, created_at)
		VALUES (:id, :school_id, :date, :period, :section_id, :subject_id, :absent_teacher_id,
		:substitute_id, :leave_request_id, :score, :notified, :created_at)`
	for i := range subs {
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
		if subs[i].CreatedAt.IsZero() {
			subs[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insert, subs[i]); err != nil {
			return fmt.Errorf("insert substitution: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit substitution insert: %w", err)
	}
	return nil
}

// MarkNotified flags a substitution as delivered by the notifier.
func (r *SubstitutionRepository) MarkNotified(ctx context.Context, id string) error {
	const query = `UPDATE substitutions SET notified = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark substitution notified: %w", err)
	}
	return nil
}
