package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type configStoreStub struct {
	cfg      *models.SchedulingConfig
	upserted *models.SchedulingConfig
}

func (s *configStoreStub) GetBySchool(_ context.Context, _ string) (*models.SchedulingConfig, error) {
	if s.cfg == nil {
		return nil, sql.ErrNoRows
	}
	return s.cfg, nil
}

func (s *configStoreStub) Upsert(_ context.Context, cfg *models.SchedulingConfig) error {
	s.upserted = cfg
	return nil
}

type invalidatorStub struct {
	schoolIDs []string
}

func (s *invalidatorStub) Invalidate(_ context.Context, schoolID string) {
	s.schoolIDs = append(s.schoolIDs, schoolID)
}

func validUpdateRequest() dto.UpdateSchedulingConfigRequest {
	return dto.UpdateSchedulingConfigRequest{
		SchoolID:           "school-1",
		PeriodsPerDay:      8,
		LunchPeriod:        5,
		MaxPeriodsPerDay:   6,
		MaxPeriodsPerWeek:  30,
		MaxConsecutive:     3,
		LightPeriods:       []int{6, 8},
		MaxSubsPerDay:      3,
		MaxConsecutiveSubs: 2,
		BaseScore:          100,
	}
}

func TestConfigGetMissing(t *testing.T) {
	svc := NewConfigService(&configStoreStub{}, nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "school-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingConfig.Code, appErrors.FromError(err).Code)
}

func TestConfigGetReturnsStoredRow(t *testing.T) {
	svc := NewConfigService(&configStoreStub{cfg: baseSchedulingConfig()}, nil, nil, zap.NewNop())

	cfg, err := svc.Get(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, "school-1", cfg.SchoolID)
	assert.Equal(t, 8, cfg.PeriodsPerDay)
}

func TestConfigUpdatePersistsAndInvalidates(t *testing.T) {
	store := &configStoreStub{}
	invalidator := &invalidatorStub{}
	svc := NewConfigService(store, invalidator, nil, zap.NewNop())

	cfg, err := svc.Update(context.Background(), validUpdateRequest(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, store.upserted)
	assert.Equal(t, "school-1", cfg.SchoolID)
	assert.Equal(t, 8, cfg.PeriodsPerDay)
	assert.Equal(t, 5, cfg.LunchPeriod)
	require.NotNil(t, cfg.UpdatedBy)
	assert.Equal(t, "user-1", *cfg.UpdatedBy)
	assert.Equal(t, []int{6, 8}, cfg.LightPeriodList())
	assert.Equal(t, []string{"school-1"}, invalidator.schoolIDs)
}

func TestConfigUpdateLunchOutsideDay(t *testing.T) {
	req := validUpdateRequest()
	req.LunchPeriod = 9
	svc := NewConfigService(&configStoreStub{}, nil, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), req, "user-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "lunch period")
}

func TestConfigUpdateRejectsMissingLimits(t *testing.T) {
	req := validUpdateRequest()
	req.MaxSubsPerDay = 0
	svc := NewConfigService(&configStoreStub{}, nil, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), req, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
