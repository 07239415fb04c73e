package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type leaveRepository interface {
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	Create(ctx context.Context, leave *models.LeaveRequest) error
	UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, approvedBy string) error
}

type leaveTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// LeaveService manages the leave request workflow feeding the substitution
// engine.
type LeaveService struct {
	repo      leaveRepository
	teachers  leaveTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(repo leaveRepository, teachers leaveTeacherReader, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// Create files a leave request in PENDING state.
func (s *LeaveService) Create(ctx context.Context, req dto.CreateLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid leave request: %v", err))
	}

	leaveType := models.LeaveType(req.Type)
	if leaveType == models.LeavePermission && len(req.Periods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "permission leave requires explicit periods")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot file leave for an inactive teacher")
	}

	leave := &models.LeaveRequest{
		ID:        uuid.NewString(),
		SchoolID:  req.SchoolID,
		TeacherID: req.TeacherID,
		Date:      date,
		Type:      leaveType,
		Status:    models.LeaveStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if leaveType == models.LeavePermission {
		leave.Periods = encodePeriods(req.Periods)
	}
	if req.Reason != "" {
		reason := req.Reason
		leave.Reason = &reason
	}

	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	s.logger.Info("leave request created",
		zap.String("leave_id", leave.ID),
		zap.String("teacher_id", leave.TeacherID),
		zap.String("type", string(leave.Type)))
	return leave, nil
}

// Review approves or rejects a pending leave request. Only pending requests
// can transition; reruns of the substitution engine pick up new approvals.
func (s *LeaveService) Review(ctx context.Context, id string, req dto.ReviewLeaveRequest, reviewedBy string) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid review: %v", err))
	}

	leave, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("leave request is already %s", leave.Status))
	}

	status := models.LeaveStatus(req.Status)
	if err := s.repo.UpdateStatus(ctx, id, status, reviewedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave request")
	}

	leave.Status = status
	leave.ApprovedBy = &reviewedBy
	s.logger.Info("leave request reviewed", zap.String("leave_id", id), zap.String("status", string(status)))
	return leave, nil
}

// List returns leave requests matching the filter with a total count.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	leaves, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, total, nil
}
