package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type schedulingConfigStore interface {
	GetBySchool(ctx context.Context, schoolID string) (*models.SchedulingConfig, error)
	Upsert(ctx context.Context, cfg *models.SchedulingConfig) error
}

type configInvalidator interface {
	Invalidate(ctx context.Context, schoolID string)
}

// ConfigService manages the per-school scheduling configuration row.
type ConfigService struct {
	repo        schedulingConfigStore
	invalidator configInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewConfigService constructs a ConfigService.
func NewConfigService(repo schedulingConfigStore, invalidator configInvalidator, validate *validator.Validate, logger *zap.Logger) *ConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigService{repo: repo, invalidator: invalidator, validator: validate, logger: logger}
}

// Get returns the stored configuration for a school.
func (s *ConfigService) Get(ctx context.Context, schoolID string) (*models.SchedulingConfig, error) {
	cfg, err := s.repo.GetBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingConfig, fmt.Sprintf("no scheduling configuration found for school %s", schoolID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling configuration")
	}
	return cfg, nil
}

// Update replaces the configuration and drops the cached copy so the next
// engine run sees the new limits.
func (s *ConfigService) Update(ctx context.Context, req dto.UpdateSchedulingConfigRequest, updatedBy string) (*models.SchedulingConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid configuration: %v", err))
	}
	if req.LunchPeriod > req.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lunch period must fall within the school day")
	}

	cfg := &models.SchedulingConfig{
		ID:                   uuid.NewString(),
		SchoolID:             req.SchoolID,
		PeriodsPerDay:        req.PeriodsPerDay,
		LunchPeriod:          req.LunchPeriod,
		MaxPeriodsPerDay:     req.MaxPeriodsPerDay,
		MaxPeriodsPerWeek:    req.MaxPeriodsPerWeek,
		MaxConsecutive:       req.MaxConsecutive,
		EnforceRoomConflicts: req.EnforceRoomConflicts,
		LightPeriods:         encodePeriods(req.LightPeriods),
		LabPeriods:           encodePeriods(req.LabPeriods),
		MaxSubsPerDay:        req.MaxSubsPerDay,
		MaxConsecutiveSubs:   req.MaxConsecutiveSubs,
		PreventBackToBack:    req.PreventBackToBack,
		WingPriority:         req.WingPriority,
		ExcludeVicePrincipal: req.ExcludeVicePrincipal,
		ExcludePrincipal:     req.ExcludePrincipal,
		LeaveDeadlineHour:    req.LeaveDeadlineHour,
		LeaveDeadlineMinute:  req.LeaveDeadlineMinute,
		EnforceLeaveDeadline: req.EnforceLeaveDeadline,
		BaseScore:            req.BaseScore,
		SubjectMatchBonus:    req.SubjectMatchBonus,
		FamiliarityBonus:     req.FamiliarityBonus,
		PeriodGapPenalty:     req.PeriodGapPenalty,
		SubLoadPenalty:       req.SubLoadPenalty,
		ConsecutivePenalty:   req.ConsecutivePenalty,
		OverloadPenalty:      req.OverloadPenalty,
		WingMatchBonus:       req.WingMatchBonus,
		UpdatedAt:            time.Now().UTC(),
	}
	if updatedBy != "" {
		cfg.UpdatedBy = &updatedBy
	}

	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save scheduling configuration")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, req.SchoolID)
	}

	s.logger.Info("scheduling configuration updated", zap.String("school_id", req.SchoolID), zap.String("updated_by", updatedBy))
	return cfg, nil
}

func encodePeriods(periods []int) types.JSONText {
	if len(periods) == 0 {
		return nil
	}
	raw, err := json.Marshal(periods)
	if err != nil {
		return nil
	}
	return types.JSONText(raw)
}
