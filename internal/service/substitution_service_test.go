package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

// 2026-08-31 is a Monday, 2026-08-30 a Sunday.
const (
	mondayDate = "2026-08-31"
	sundayDate = "2026-08-30"
)

type leaveFeederStub struct {
	leaves []models.LeaveRequest
	err    error
}

func (s *leaveFeederStub) ListApprovedByDate(_ context.Context, _ string, _ time.Time) ([]models.LeaveRequest, error) {
	return s.leaves, s.err
}

type substitutionStoreStub struct {
	existing []models.Substitution
	err      error
	created  []models.Substitution
}

func (s *substitutionStoreStub) ListByDate(_ context.Context, _ string, _ time.Time) ([]models.Substitution, error) {
	return s.existing, s.err
}

func (s *substitutionStoreStub) BulkCreate(_ context.Context, subs []models.Substitution) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, subs...)
	return nil
}

type substitutionFixtureConfig struct {
	cfg      *models.SchedulingConfig
	subjects []models.Subject
	leaves   []models.LeaveRequest
	teachers []models.Teacher
	quals    []models.TeacherSubject
	slots    []models.TimetableSlot
	sections []models.Section
	existing []models.Substitution
	taught   map[string]bool
	now      func() time.Time
}

type substitutionFixture struct {
	svc  *SubstitutionService
	subs *substitutionStoreStub
}

func newSubstitutionFixture(t *testing.T, fc substitutionFixtureConfig) *substitutionFixture {
	t.Helper()

	constraints := NewConstraintService(
		&configFetcherStub{cfg: fc.cfg},
		&subjectReaderStub{subjects: fc.subjects},
		nil,
		zap.NewNop(),
		ConstraintServiceConfig{},
	)
	subs := &substitutionStoreStub{existing: fc.existing}
	svc := NewSubstitutionService(
		constraints,
		&leaveFeederStub{leaves: fc.leaves},
		&timetableStoreStub{slots: fc.slots, taught: fc.taught},
		&teacherReaderStub{teachers: fc.teachers},
		&qualificationReaderStub{quals: fc.quals},
		&sectionReaderStub{sections: fc.sections},
		subs,
		nil,
		zap.NewNop(),
		nil,
	)
	if fc.now != nil {
		svc.now = fc.now
	}
	return &substitutionFixture{svc: svc, subs: subs}
}

func leaveFixture(id, teacherID string, leaveType models.LeaveType) models.LeaveRequest {
	date, _ := time.Parse("2006-01-02", mondayDate)
	return models.LeaveRequest{
		ID:        id,
		SchoolID:  "school-1",
		TeacherID: teacherID,
		Date:      date,
		Type:      leaveType,
		Status:    models.LeaveStatusApproved,
	}
}

func mondaySlot(sectionID, teacherID string, period int) models.TimetableSlot {
	return models.TimetableSlot{
		ID:        "slot-" + sectionID + "-" + teacherID,
		SchoolID:  "school-1",
		SectionID: sectionID,
		DayOfWeek: 1,
		Period:    period,
		SubjectID: "sub-math",
		TeacherID: teacherID,
	}
}

func mondayRequest() dto.GenerateSubstitutionsRequest {
	return dto.GenerateSubstitutionsRequest{SchoolID: "school-1", Date: mondayDate}
}

func TestSubstitutionGenerateCoversFullDayLeave(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:    baseSchedulingConfig(),
		leaves: []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{
			teacherFixture("t-abs"),
			teacherFixture("t-sub1"),
			teacherFixture("t-sub2"),
		},
		quals: []models.TeacherSubject{{TeacherID: "t-sub1", SubjectID: "sub-math"}},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 2),
			mondaySlot("sec-8a", "t-abs", 3),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 3)
	assert.Empty(t, resp.Skipped)
	assert.Empty(t, resp.Errors)

	// The qualified teacher takes the first two; the mounting load penalty
	// then hands the third period to the unqualified one.
	assert.Equal(t, "t-sub1", resp.Substitutions[0].SubstituteID)
	assert.Equal(t, "t-sub1", resp.Substitutions[1].SubstituteID)
	assert.Equal(t, "t-sub2", resp.Substitutions[2].SubstituteID)
	for _, sub := range resp.Substitutions {
		assert.Equal(t, "t-abs", sub.AbsentTeacherID)
		assert.Equal(t, "leave-1", sub.LeaveRequestID)
		assert.Greater(t, sub.Score, 0.0)
	}

	assert.Len(t, fx.subs.created, 3, "generate must persist the assignments")
}

func TestSubstitutionPreviewDoesNotPersist(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Preview(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 1)
	assert.Empty(t, fx.subs.created)
}

func TestSubstitutionDailyCap(t *testing.T) {
	fc := substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 2),
			mondaySlot("sec-8a", "t-abs", 3),
			mondaySlot("sec-8a", "t-abs", 4),
			mondaySlot("sec-8a", "t-abs", 6),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	}

	t.Run("configured cap limits one teacher to three covers", func(t *testing.T) {
		resp, err := newSubstitutionFixture(t, fc).svc.Generate(context.Background(), mondayRequest())
		require.NoError(t, err)
		assert.Len(t, resp.Substitutions, 3)
		require.Len(t, resp.Skipped, 2)
		for _, skip := range resp.Skipped {
			assert.Contains(t, skip.Reason, "daily substitution cap of 3")
		}
	})

	t.Run("request override raises the cap", func(t *testing.T) {
		req := mondayRequest()
		req.MaxSubsPerTeacher = intPtr(5)
		resp, err := newSubstitutionFixture(t, fc).svc.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, resp.Substitutions, 5)
		assert.Empty(t, resp.Skipped)
	})
}

func TestSubstitutionExcludesOnDutyTeachers(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg: baseSchedulingConfig(),
		leaves: []models.LeaveRequest{
			leaveFixture("leave-1", "t-abs", models.LeaveFullDay),
			leaveFixture("leave-2", "t-duty", models.LeaveOnDuty),
		},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-duty")},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Substitutions)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, "teacher is on duty", resp.Skipped[0].Reason)
}

func TestSubstitutionExcludesSeniorRoles(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.ExcludeVicePrincipal = true

	vp := teacherFixture("t-vp")
	vp.Role = models.TeacherRoleVicePrincipal

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      cfg,
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), vp},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Substitutions)
	require.Len(t, resp.Skipped, 1)
	assert.Contains(t, resp.Skipped[0].Reason, "vice principals")
}

func TestSubstitutionSkipsRegularClash(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8b", "t-sub1", 1),
		},
		sections: []models.Section{sectionFixture("sec-8a"), sectionFixture("sec-8b")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Substitutions)
	require.Len(t, resp.Skipped, 1)
	assert.Contains(t, resp.Skipped[0].Reason, "regular class")
}

func TestSubstitutionConsecutiveLimit(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.MaxConsecutiveSubs = 2

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      cfg,
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 2),
			mondaySlot("sec-8a", "t-abs", 3),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Substitutions, 2)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, 2, resp.Skipped[0].Period)
	assert.Contains(t, resp.Skipped[0].Reason, "consecutive substitutions")
}

func TestSubstitutionPreventBackToBack(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.PreventBackToBack = true

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      cfg,
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 2),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Len(t, resp.Substitutions, 1)
	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, 2, resp.Skipped[0].Period)
	assert.Contains(t, resp.Skipped[0].Reason, "previous period")
}

func TestSubstitutionHalfDayCoversPreLunchOnly(t *testing.T) {
	slots := []models.TimetableSlot{}
	for _, p := range []int{1, 2, 3, 4, 6, 7} {
		slots = append(slots, mondaySlot("sec-8a", "t-abs", p))
	}
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveHalfDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1"), teacherFixture("t-sub2")},
		slots:    slots,
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 4)
	for _, sub := range resp.Substitutions {
		assert.Less(t, sub.Period, 5, "half-day leave vacates pre-lunch periods only")
	}
}

func TestSubstitutionPermissionCoversListedPeriodsOnly(t *testing.T) {
	leave := leaveFixture("leave-1", "t-abs", models.LeavePermission)
	leave.Periods = types.JSONText(`[3]`)

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leave},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 3),
			mondaySlot("sec-8a", "t-abs", 4),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 1)
	assert.Equal(t, 3, resp.Substitutions[0].Period)
}

func TestSubstitutionClassTeacherWinsTiebreak(t *testing.T) {
	section := sectionFixture("sec-8a")
	section.ClassTeacherID = strPtr("t-sub2")

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1"), teacherFixture("t-sub2")},
		quals: []models.TeacherSubject{
			{TeacherID: "t-sub1", SubjectID: "sub-math"},
			{TeacherID: "t-sub2", SubjectID: "sub-math"},
		},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{section},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 1)
	assert.Equal(t, "t-sub2", resp.Substitutions[0].SubstituteID)
	// base 100 + subject match 25 + class-teacher bonus 15 - consecutive 8.
	assert.Equal(t, 132.0, resp.Substitutions[0].Score)
}

func TestSubstitutionConsecutivePenaltyScalesWithRun(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots: []models.TimetableSlot{
			mondaySlot("sec-8a", "t-abs", 1),
			mondaySlot("sec-8a", "t-abs", 2),
		},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 2)

	// The lone candidate pays the consecutive weight times the full run it
	// would stand in: one weight for the first period, two for the second,
	// plus the mounting sub-load penalty.
	assert.Equal(t, 1, resp.Substitutions[0].Period)
	assert.Equal(t, 100.0-8.0, resp.Substitutions[0].Score)
	assert.Equal(t, 2, resp.Substitutions[1].Period)
	assert.Equal(t, 100.0-10.0-16.0, resp.Substitutions[1].Score)
}

func TestSubstitutionFamiliarityBonus(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1"), teacherFixture("t-sub2")},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
		taught:   map[string]bool{"t-sub2|sec-8a": true},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 1)
	assert.Equal(t, "t-sub2", resp.Substitutions[0].SubstituteID)
}

func TestSubstitutionWingPriority(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.WingPriority = true

	absent := teacherFixture("t-abs")
	absent.WingID = strPtr("wing-1")
	sameWing := teacherFixture("t-sub2")
	sameWing.WingID = strPtr("wing-1")
	otherWing := teacherFixture("t-sub1")
	otherWing.WingID = strPtr("wing-2")

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      cfg,
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{absent, sameWing, otherWing},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	require.Len(t, resp.Substitutions, 1)
	assert.Equal(t, "t-sub2", resp.Substitutions[0].SubstituteID)
}

func TestSubstitutionExistingAssignmentsSeedLoad(t *testing.T) {
	date, _ := time.Parse("2006-01-02", mondayDate)
	existing := []models.Substitution{
		{ID: "sub-1", SubstituteID: "t-sub1", Period: 1, Date: date},
		{ID: "sub-2", SubstituteID: "t-sub1", Period: 2, Date: date},
		{ID: "sub-3", SubstituteID: "t-sub1", Period: 3, Date: date},
	}

	fx := newSubstitutionFixture(t, substitutionFixtureConfig{
		cfg:      baseSchedulingConfig(),
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 6)},
		sections: []models.Section{sectionFixture("sec-8a")},
		existing: existing,
	})

	resp, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Substitutions)
	require.Len(t, resp.Skipped, 1)
	assert.Contains(t, resp.Skipped[0].Reason, "daily substitution cap")
}

func TestSubstitutionSundayIsAdvisory(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{cfg: baseSchedulingConfig()})

	resp, err := fx.svc.Generate(context.Background(), dto.GenerateSubstitutionsRequest{
		SchoolID: "school-1",
		Date:     sundayDate,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Substitutions)
	assert.Empty(t, resp.Skipped)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "Sunday")
}

func TestSubstitutionDeadlineAdvisory(t *testing.T) {
	cfg := baseSchedulingConfig()
	cfg.EnforceLeaveDeadline = true

	lateMorning := func() time.Time {
		return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	}
	fc := substitutionFixtureConfig{
		cfg:      cfg,
		leaves:   []models.LeaveRequest{leaveFixture("leave-1", "t-abs", models.LeaveFullDay)},
		teachers: []models.Teacher{teacherFixture("t-abs"), teacherFixture("t-sub1")},
		slots:    []models.TimetableSlot{mondaySlot("sec-8a", "t-abs", 1)},
		sections: []models.Section{sectionFixture("sec-8a")},
		now:      lateMorning,
	}

	t.Run("missed deadline is reported but never aborts", func(t *testing.T) {
		resp, err := newSubstitutionFixture(t, fc).svc.Generate(context.Background(), mondayRequest())
		require.NoError(t, err)
		require.Len(t, resp.Errors, 1)
		assert.Contains(t, resp.Errors[0], "08:00")
		assert.Len(t, resp.Substitutions, 1)
	})

	t.Run("request override suppresses the check", func(t *testing.T) {
		req := mondayRequest()
		req.EnforceDeadline = boolPtr(false)
		resp, err := newSubstitutionFixture(t, fc).svc.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, resp.Errors)
	})

	t.Run("run before the deadline is clean", func(t *testing.T) {
		early := fc
		early.now = func() time.Time { return time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC) }
		resp, err := newSubstitutionFixture(t, early).svc.Generate(context.Background(), mondayRequest())
		require.NoError(t, err)
		assert.Empty(t, resp.Errors)
	})
}

func TestSubstitutionMissingConfig(t *testing.T) {
	fx := newSubstitutionFixture(t, substitutionFixtureConfig{})

	_, err := fx.svc.Generate(context.Background(), mondayRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingConfig.Code, appErrors.FromError(err).Code)
}
