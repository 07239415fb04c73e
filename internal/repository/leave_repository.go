package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/school-ops-api/internal/models"
)

const leaveColumns = `id, school_id, teacher_id, date, type, status, periods, reason, approved_by, created_at, updated_at`

// LeaveRepository manages persistence for leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListApprovedByDate returns approved leave requests for a school and date in
// creation order. The order matters: substitution generation is greedy and
// processes leaves first-come first-served.
func (r *LeaveRepository) ListApprovedByDate(ctx context.Context, schoolID string, date time.Time) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE school_id = $1 AND date = $2 AND status = $3 ORDER BY created_at", leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, schoolID, date, models.LeaveStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved leaves: %w", err)
	}
	return leaves, nil
}

// List returns leave requests matching filters along with total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	base := "FROM leave_requests WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}

	if filter.TeacherID != "" {
		base += fmt.Sprintf(" AND teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if filter.Date != nil {
		base += fmt.Sprintf(" AND date = $%d", len(args)+1)
		args = append(args, *filter.Date)
	}
	if filter.Status != nil {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", leaveColumns, base, size, offset)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leaves: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leaves: %w", err)
	}

	return leaves, total, nil
}

// FindByID fetches a leave request by ID.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE id = $1", leaveColumns)
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now

	const query = `INSERT INTO leave_requests (id, school_id, teacher_id, date, type, status, periods, reason, approved_by, created_at, updated_at)
		VALUES (:id, :school_id, :teacher_id, :date, :type, :status, :periods, :reason, :approved_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// UpdateStatus transitions a leave request's approval state.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, approvedBy string) error {
	const query = `UPDATE leave_requests SET status = $2, approved_by = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, approvedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	return nil
}
