package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type configCacheStub struct {
	stored  map[string]*models.SchedulingConfig
	gets    int
	hits    int
	sets    int
	deletes int
}

func newConfigCacheStub() *configCacheStub {
	return &configCacheStub{stored: map[string]*models.SchedulingConfig{}}
}

func (c *configCacheStub) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	cached, ok := c.stored[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	*dest.(*models.SchedulingConfig) = *cached
	return nil
}

func (c *configCacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	c.stored[key] = value.(*models.SchedulingConfig)
	return nil
}

func (c *configCacheStub) Delete(_ context.Context, key string) error {
	c.deletes++
	delete(c.stored, key)
	return nil
}

func TestConstraintResolveMissingConfig(t *testing.T) {
	svc := NewConstraintService(&configFetcherStub{}, &subjectReaderStub{}, nil, zap.NewNop(), ConstraintServiceConfig{})

	_, err := svc.Resolve(context.Background(), "school-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrMissingConfig.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrMissingConfig.Status, appErr.Status)
}

func TestConstraintResolveDerivesSubjectGroupings(t *testing.T) {
	hindi := subjectFixture("sub-hin", 3)
	hindi.LanguageGroup = models.LanguageGroupSecond
	sanskrit := subjectFixture("sub-san", 3)
	sanskrit.LanguageGroup = models.LanguageGroupSecond
	physics := subjectFixture("sub-phy", 4)
	physics.StreamGroup = models.StreamGroupScience
	physics.IsLab = true
	physics.MaxPerDay = 3
	games := subjectFixture("sub-gam", 2)
	games.IsLight = true

	svc := NewConstraintService(
		&configFetcherStub{cfg: baseSchedulingConfig()},
		&subjectReaderStub{subjects: []models.Subject{sanskrit, hindi, physics, games}},
		nil,
		zap.NewNop(),
		ConstraintServiceConfig{},
	)

	rc, err := svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)

	assert.Equal(t, 3, rc.PeriodsPerWeek["sub-hin"])
	assert.Equal(t, 3, rc.MaxPerDay["sub-phy"])
	assert.Equal(t, defaultSubjectMaxPerDay, rc.MaxPerDay["sub-hin"], "unset per-day limit falls back to the default")
	assert.Contains(t, rc.LabSubjects, "sub-phy")
	assert.Contains(t, rc.LightSubjects, "sub-gam")

	// Group members come back sorted regardless of fetch order.
	assert.Equal(t, []string{"sub-hin", "sub-san"}, rc.LanguageGroups[models.LanguageGroupSecond])
	assert.Equal(t, []string{"sub-phy"}, rc.StreamGroups[models.StreamGroupScience])

	assert.Equal(t, []string{"sub-hin", "sub-san"}, rc.GroupOf("sub-hin"))
	assert.Nil(t, rc.GroupOf("sub-gam"))
}

func TestConstraintResolveAppliesWeightDefaults(t *testing.T) {
	svc := NewConstraintService(
		&configFetcherStub{cfg: baseSchedulingConfig()},
		&subjectReaderStub{},
		nil,
		zap.NewNop(),
		ConstraintServiceConfig{},
	)

	rc, err := svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)

	cfg := rc.Config
	assert.Equal(t, defaultBaseScore, cfg.BaseScore)
	assert.Equal(t, defaultSubjectMatchBonus, cfg.SubjectMatchBonus)
	assert.Equal(t, defaultFamiliarityBonus, cfg.FamiliarityBonus)
	assert.Equal(t, defaultPeriodGapPenalty, cfg.PeriodGapPenalty)
	assert.Equal(t, defaultSubLoadPenalty, cfg.SubLoadPenalty)
	assert.Equal(t, defaultConsecutivePenalty, cfg.ConsecutivePenalty)
	assert.Equal(t, defaultOverloadPenalty, cfg.OverloadPenalty)
	assert.Equal(t, defaultWingMatchBonus, cfg.WingMatchBonus)
	assert.Equal(t, defaultLeaveDeadlineHour, cfg.LeaveDeadlineHour)

	// Primary limits pass through untouched.
	assert.Equal(t, 8, cfg.PeriodsPerDay)
	assert.Equal(t, 6, cfg.MaxPeriodsPerDay)
	assert.Equal(t, 40, cfg.MaxPeriodsPerWeek)
}

func TestConstraintResolveWeeklyCapFallback(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.MaxPeriodsPerWeek = 0

	svc := NewConstraintService(&configFetcherStub{cfg: cfg}, &subjectReaderStub{}, nil, zap.NewNop(), ConstraintServiceConfig{})
	rc, err := svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, cfg.PeriodsPerDay*models.SchoolDays, rc.Config.MaxPeriodsPerWeek)
}

func TestConstraintCacheReadThrough(t *testing.T) {
	fetcher := &configFetcherStub{cfg: baseSchedulingConfig()}
	cache := newConfigCacheStub()
	svc := NewConstraintService(fetcher, &subjectReaderStub{}, cache, zap.NewNop(), ConstraintServiceConfig{
		CacheEnabled: true,
		CacheTTL:     time.Minute,
	})

	_, err := svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "second resolve must hit the cache")
	assert.Equal(t, 1, cache.hits)

	svc.Invalidate(context.Background(), "school-1")
	assert.Equal(t, 1, cache.deletes)

	_, err = svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "invalidation must force a refetch")
}

func TestConstraintCacheDisabled(t *testing.T) {
	fetcher := &configFetcherStub{cfg: baseSchedulingConfig()}
	cache := newConfigCacheStub()
	svc := NewConstraintService(fetcher, &subjectReaderStub{}, cache, zap.NewNop(), ConstraintServiceConfig{})

	_, err := svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), "school-1")
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.calls)
	assert.Zero(t, cache.gets)
	assert.Zero(t, cache.sets)
}
