package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const subjectColumns = `id, school_id, code, name, periods_per_week, max_per_day, is_lab,
	is_light, language_group, stream_group, active, created_at, updated_at`

// SubjectRepository manages persistence for subjects and teacher-subject
// competency mappings.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListBySchool returns all active subjects for a school.
func (r *SubjectRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE school_id = $1 AND active = TRUE ORDER BY code", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// List returns subjects matching filters along with total count.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, search)
	}
	if filter.Lab != nil {
		base += fmt.Sprintf(" AND is_lab = $%d", len(args)+1)
		args = append(args, *filter.Lab)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY code LIMIT %d OFFSET %d", subjectColumns, base, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// FindByID fetches a subject by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, school_id, code, name, periods_per_week, max_per_day,
		is_lab, is_light, language_group, stream_group, active, created_at, updated_at)
		VALUES (:id, :school_id, :code, :name, :periods_per_week, :max_per_day, :is_lab,
		:is_light, :language_group, :stream_group, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// ListTeacherSubjects returns the teacher-subject competency mappings for all
// teachers of a school.
func (r *SubjectRepository) ListTeacherSubjects(ctx context.Context, schoolID string) ([]models.TeacherSubject, error) {
	const query = `SELECT ts.id, ts.teacher_id, ts.subject_id, ts.created_at
		FROM teacher_subjects ts
		JOIN teachers t ON t.id = ts.teacher_id
		WHERE t.school_id = $1 AND t.active = TRUE`
	var mappings []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &mappings, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return mappings, nil
}

// AssignTeacher records a teacher as qualified for a subject.
func (r *SubjectRepository) AssignTeacher(ctx context.Context, teacherID, subjectID string) error {
	const query = `INSERT INTO teacher_subjects (id, teacher_id, subject_id, created_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (teacher_id, subject_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), teacherID, subjectID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign teacher subject: %w", err)
	}
	return nil
}
