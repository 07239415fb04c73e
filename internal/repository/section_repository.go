package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const sectionColumns = `id, school_id, wing_id, name, grade, room_id, class_teacher_id, active, created_at, updated_at`

// SectionRepository manages persistence for class sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListBySchool returns active sections for a school, optionally filtered to a wing.
func (r *SectionRepository) ListBySchool(ctx context.Context, schoolID, wingID string) ([]models.Section, error) {
	base := fmt.Sprintf("SELECT %s FROM sections WHERE school_id = $1 AND active = TRUE", sectionColumns)
	args := []interface{}{schoolID}
	if wingID != "" {
		base += " AND wing_id = $2"
		args = append(args, wingID)
	}
	base += " ORDER BY grade, name"

	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, base, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListByIDs returns the sections with the given IDs.
func (r *SectionRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM sections WHERE id IN (?)", sectionColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build section query: %w", err)
	}
	query = r.db.Rebind(query)

	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections by ids: %w", err)
	}
	return sections, nil
}

// FindByID fetches a section by ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE id = $1", sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, school_id, wing_id, name, grade, room_id, class_teacher_id, active, created_at, updated_at)
		VALUES (:id, :school_id, :wing_id, :name, :grade, :room_id, :class_teacher_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}
