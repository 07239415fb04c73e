package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const teacherColumns = `id, school_id, wing_id, email, full_name, role, active, created_at, updated_at`

// TeacherRepository manages persistence for teachers and their preferences.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListBySchool returns the active teacher roster for a school.
func (r *TeacherRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE school_id = $1 AND active = TRUE ORDER BY full_name", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}

	if filter.WingID != "" {
		base += fmt.Sprintf(" AND wing_id = $%d", len(args)+1)
		args = append(args, filter.WingID)
	}
	if filter.Role != nil {
		base += fmt.Sprintf(" AND role = $%d", len(args)+1)
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		base += fmt.Sprintf(" AND (LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, search)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, school_id, wing_id, email, full_name, role, active, created_at, updated_at)
		VALUES (:id, :school_id, :wing_id, :email, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// GetPreference fetches the optional scheduling preference for a teacher.
// Returns nil (no error) when the teacher has none.
func (r *TeacherRepository) GetPreference(ctx context.Context, teacherID string) (*models.TeacherPreference, error) {
	const query = `SELECT id, teacher_id, preferred_periods, avoided_periods, max_per_day, created_at, updated_at
		FROM teacher_preferences WHERE teacher_id = $1`
	var pref models.TeacherPreference
	if err := r.db.GetContext(ctx, &pref, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher preference: %w", err)
	}
	return &pref, nil
}

// ListPreferences fetches all teacher preferences for a school keyed by
// teacher ID.
func (r *TeacherRepository) ListPreferences(ctx context.Context, schoolID string) (map[string]*models.TeacherPreference, error) {
	const query = `SELECT p.id, p.teacher_id, p.preferred_periods, p.avoided_periods, p.max_per_day, p.created_at, p.updated_at
		FROM teacher_preferences p
		JOIN teachers t ON t.id = p.teacher_id
		WHERE t.school_id = $1`
	var prefs []models.TeacherPreference
	if err := r.db.SelectContext(ctx, &prefs, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teacher preferences: %w", err)
	}
	result := make(map[string]*models.TeacherPreference, len(prefs))
	for i := range prefs {
		result[prefs[i].TeacherID] = &prefs[i]
	}
	return result, nil
}

// UpsertPreference creates or replaces a teacher preference row.
func (r *TeacherRepository) UpsertPreference(ctx context.Context, pref *models.TeacherPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	const query = `INSERT INTO teacher_preferences (id, teacher_id, preferred_periods, avoided_periods, max_per_day, created_at, updated_at)
		VALUES (:id, :teacher_id, :preferred_periods, :avoided_periods, :max_per_day, :created_at, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE SET
		preferred_periods = EXCLUDED.preferred_periods,
		avoided_periods = EXCLUDED.avoided_periods,
		max_per_day = EXCLUDED.max_per_day,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert teacher preference: %w", err)
	}
	return nil
}
