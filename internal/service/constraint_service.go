package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type schedulingConfigFetcher interface {
	GetBySchool(ctx context.Context, schoolID string) (*models.SchedulingConfig, error)
}

type constraintSubjectReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
}

type configCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ResolvedConstraints is the single, immutable constraint set both engines
// consume. It is rebuilt on every operation; subject-derived groupings are
// never cached across calls because subjects may change between operations.
type ResolvedConstraints struct {
	Config models.SchedulingConfig

	Subjects       map[string]models.Subject
	PeriodsPerWeek map[string]int
	MaxPerDay      map[string]int
	LabSubjects    map[string]struct{}
	LightSubjects  map[string]struct{}
	LanguageGroups map[models.LanguageGroup][]string
	StreamGroups   map[models.StreamGroup][]string
}

// GroupOf returns the parallel-slot group members for a subject, or nil when
// the subject belongs to no language or stream group.
func (rc *ResolvedConstraints) GroupOf(subjectID string) []string {
	subject, ok := rc.Subjects[subjectID]
	if !ok {
		return nil
	}
	if subject.LanguageGroup != models.LanguageGroupNone && subject.LanguageGroup != "" {
		return rc.LanguageGroups[subject.LanguageGroup]
	}
	if subject.StreamGroup != models.StreamGroupNone && subject.StreamGroup != "" {
		return rc.StreamGroups[subject.StreamGroup]
	}
	return nil
}

// ConstraintServiceConfig tunes the optional read-through cache for raw
// configuration rows.
type ConstraintServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ConstraintService loads a school's scheduling configuration and derives the
// subject groupings both engines depend on.
type ConstraintService struct {
	configs  schedulingConfigFetcher
	subjects constraintSubjectReader
	cache    configCache
	logger   *zap.Logger
	cfg      ConstraintServiceConfig
}

// NewConstraintService constructs a ConstraintService.
func NewConstraintService(configs schedulingConfigFetcher, subjects constraintSubjectReader, cache configCache, logger *zap.Logger, cfg ConstraintServiceConfig) *ConstraintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ConstraintService{configs: configs, subjects: subjects, cache: cache, logger: logger, cfg: cfg}
}

// Resolve fetches the school's configuration and derives the per-operation
// constraint set. A school without configuration is a fatal precondition
// failure: the engines never invent primary limits.
func (s *ConstraintService) Resolve(ctx context.Context, schoolID string) (*ResolvedConstraints, error) {
	cfg, err := s.fetchConfig(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	normalized := normalizeConfig(*cfg)

	subjects, err := s.subjects.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	rc := &ResolvedConstraints{
		Config:         normalized,
		Subjects:       make(map[string]models.Subject, len(subjects)),
		PeriodsPerWeek: make(map[string]int, len(subjects)),
		MaxPerDay:      make(map[string]int, len(subjects)),
		LabSubjects:    make(map[string]struct{}),
		LightSubjects:  make(map[string]struct{}),
		LanguageGroups: make(map[models.LanguageGroup][]string),
		StreamGroups:   make(map[models.StreamGroup][]string),
	}

	for _, subject := range subjects {
		rc.Subjects[subject.ID] = subject
		rc.PeriodsPerWeek[subject.ID] = subject.PeriodsPerWeek
		maxPerDay := subject.MaxPerDay
		if maxPerDay <= 0 {
			maxPerDay = defaultSubjectMaxPerDay
		}
		rc.MaxPerDay[subject.ID] = maxPerDay
		if subject.IsLab {
			rc.LabSubjects[subject.ID] = struct{}{}
		}
		if subject.IsLight {
			rc.LightSubjects[subject.ID] = struct{}{}
		}
		if subject.LanguageGroup != models.LanguageGroupNone && subject.LanguageGroup != "" {
			rc.LanguageGroups[subject.LanguageGroup] = append(rc.LanguageGroups[subject.LanguageGroup], subject.ID)
		}
		if subject.StreamGroup != models.StreamGroupNone && subject.StreamGroup != "" {
			rc.StreamGroups[subject.StreamGroup] = append(rc.StreamGroups[subject.StreamGroup], subject.ID)
		}
	}

	// Stable member order keeps parallel-slot planning reproducible.
	for group := range rc.LanguageGroups {
		sort.Strings(rc.LanguageGroups[group])
	}
	for group := range rc.StreamGroups {
		sort.Strings(rc.StreamGroups[group])
	}

	return rc, nil
}

// Invalidate drops the cached configuration row for a school, if caching is on.
func (s *ConstraintService) Invalidate(ctx context.Context, schoolID string) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, configCacheKey(schoolID)); err != nil {
		s.logger.Warn("failed to invalidate config cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}

func (s *ConstraintService) fetchConfig(ctx context.Context, schoolID string) (*models.SchedulingConfig, error) {
	key := configCacheKey(schoolID)
	if s.cfg.CacheEnabled && s.cache != nil {
		var cached models.SchedulingConfig
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	cfg, err := s.configs.GetBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingConfig, fmt.Sprintf("no scheduling configuration found for school %s", schoolID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling configuration")
	}

	if s.cfg.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, cfg, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache scheduling config", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
	return cfg, nil
}

func configCacheKey(schoolID string) string {
	return "scheduling_config:" + schoolID
}

// Fallbacks for optional fields. Primary limits (periods per day, caps, max
// substitutions) have no fallback and must come from the stored row.
const (
	defaultSubjectMaxPerDay    = 2
	defaultBaseScore           = 100.0
	defaultSubjectMatchBonus   = 25.0
	defaultFamiliarityBonus    = 15.0
	defaultPeriodGapPenalty    = 5.0
	defaultSubLoadPenalty      = 10.0
	defaultConsecutivePenalty  = 8.0
	defaultOverloadPenalty     = 20.0
	defaultWingMatchBonus      = 10.0
	defaultLeaveDeadlineHour   = 8
	defaultLeaveDeadlineMinute = 0
)

// normalizeConfig applies documented defaults for optional fields in one
// place so scoring code never falls back inline.
func normalizeConfig(cfg models.SchedulingConfig) models.SchedulingConfig {
	if cfg.BaseScore <= 0 {
		cfg.BaseScore = defaultBaseScore
	}
	if cfg.SubjectMatchBonus <= 0 {
		cfg.SubjectMatchBonus = defaultSubjectMatchBonus
	}
	if cfg.FamiliarityBonus <= 0 {
		cfg.FamiliarityBonus = defaultFamiliarityBonus
	}
	if cfg.PeriodGapPenalty <= 0 {
		cfg.PeriodGapPenalty = defaultPeriodGapPenalty
	}
	if cfg.SubLoadPenalty <= 0 {
		cfg.SubLoadPenalty = defaultSubLoadPenalty
	}
	if cfg.ConsecutivePenalty <= 0 {
		cfg.ConsecutivePenalty = defaultConsecutivePenalty
	}
	if cfg.OverloadPenalty <= 0 {
		cfg.OverloadPenalty = defaultOverloadPenalty
	}
	if cfg.WingMatchBonus <= 0 {
		cfg.WingMatchBonus = defaultWingMatchBonus
	}
	if cfg.LeaveDeadlineHour <= 0 && cfg.LeaveDeadlineMinute <= 0 {
		cfg.LeaveDeadlineHour = defaultLeaveDeadlineHour
		cfg.LeaveDeadlineMinute = defaultLeaveDeadlineMinute
	}
	if cfg.MaxPeriodsPerWeek <= 0 {
		cfg.MaxPeriodsPerWeek = cfg.PeriodsPerDay * models.SchoolDays
	}
	return cfg
}
