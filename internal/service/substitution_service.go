package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type leaveFeeder interface {
	ListApprovedByDate(ctx context.Context, schoolID string, date time.Time) ([]models.LeaveRequest, error)
}

type substitutionTimetableReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlot, error)
	HasTaughtSection(ctx context.Context, teacherID, sectionID string) (bool, error)
}

type substitutionStore interface {
	ListByDate(ctx context.Context, schoolID string, date time.Time) ([]models.Substitution, error)
	BulkCreate(ctx context.Context, subs []models.Substitution) error
}

type substitutionSectionReader interface {
	ListBySchool(ctx context.Context, schoolID, wingID string) ([]models.Section, error)
}

// Class teachers covering their own section get a flat bonus on top of the
// configured weights.
const classTeacherBonus = 15.0

// SubstitutionService assigns substitute teachers for the vacated periods of
// a single date. Generation is greedy and order sensitive: leaves are
// processed in approval order and every assignment immediately counts against
// the substitute's load for later periods.
type SubstitutionService struct {
	constraints constraintResolver
	leaves      leaveFeeder
	timetables  substitutionTimetableReader
	teachers    schedulerTeacherReader
	quals       qualificationReader
	sections    substitutionSectionReader
	subs        substitutionStore
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// NewSubstitutionService wires the substitution engine dependencies.
func NewSubstitutionService(
	constraints constraintResolver,
	leaves leaveFeeder,
	timetables substitutionTimetableReader,
	teachers schedulerTeacherReader,
	quals qualificationReader,
	sections substitutionSectionReader,
	subs substitutionStore,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionService{
		constraints: constraints,
		leaves:      leaves,
		timetables:  timetables,
		teachers:    teachers,
		quals:       quals,
		sections:    sections,
		subs:        subs,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Generate proposes and persists substitutions for the date.
func (s *SubstitutionService) Generate(ctx context.Context, req dto.GenerateSubstitutionsRequest) (*dto.GenerateSubstitutionsResponse, error) {
	return s.run(ctx, req, true)
}

// Preview runs the identical assignment pass without persisting anything.
func (s *SubstitutionService) Preview(ctx context.Context, req dto.GenerateSubstitutionsRequest) (*dto.GenerateSubstitutionsResponse, error) {
	return s.run(ctx, req, false)
}

// subState is the per-run bookkeeping that makes the greedy pass order
// sensitive: assignments made for earlier leaves count against candidates for
// later ones.
type subState struct {
	subCount   map[string]int
	subPeriods map[string]map[int]bool
}

func (st *subState) assign(teacherID string, period int) {
	st.subCount[teacherID]++
	if st.subPeriods[teacherID] == nil {
		st.subPeriods[teacherID] = map[int]bool{}
	}
	st.subPeriods[teacherID][period] = true
}

// consecutiveSubRun returns the substitution run length that would result
// from adding the given period.
func (st *subState) consecutiveSubRun(teacherID string, period int) int {
	periods := st.subPeriods[teacherID]
	run := 1
	for p := period - 1; periods[p]; p-- {
		run++
	}
	for p := period + 1; periods[p]; p++ {
		run++
	}
	return run
}

func (s *SubstitutionService) run(ctx context.Context, req dto.GenerateSubstitutionsRequest, persist bool) (*dto.GenerateSubstitutionsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid substitution request: %v", err))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	rc, err := s.constraints.Resolve(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	resp := &dto.GenerateSubstitutionsResponse{
		Substitutions: []models.Substitution{},
		Skipped:       []models.SkippedPeriod{},
	}

	day := int(date.Weekday())
	if day == 0 {
		resp.Errors = append(resp.Errors, fmt.Sprintf("%s is a Sunday, not a school day", req.Date))
		return resp, nil
	}

	s.checkDeadline(rc, req, resp)

	leaves, err := s.leaves.ListApprovedByDate(ctx, req.SchoolID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved leaves")
	}
	if len(leaves) == 0 {
		return resp, nil
	}

	roster, err := s.teachers.ListBySchool(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	quals, err := s.quals.ListTeacherSubjects(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher qualifications")
	}
	allSlots, err := s.timetables.ListBySchool(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	sections, err := s.sections.ListBySchool(ctx, req.SchoolID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	existing, err := s.subs.ListByDate(ctx, req.SchoolID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing substitutions")
	}

	env := s.buildEnv(rc, req, leaves, roster, quals, allSlots, sections, existing, day)

	history := map[string]bool{}
	for _, leave := range leaves {
		vacated := env.vacatedPeriods(leave)
		for _, slot := range vacated {
			sub, skip := s.coverPeriod(ctx, rc, env, leave, slot, date, history)
			if skip != nil {
				resp.Skipped = append(resp.Skipped, *skip)
				continue
			}
			resp.Substitutions = append(resp.Substitutions, *sub)
		}
	}

	if persist && len(resp.Substitutions) > 0 {
		if err := s.subs.BulkCreate(ctx, resp.Substitutions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist substitutions")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSubstitutionRun(len(resp.Substitutions), len(resp.Skipped), persist)
	}
	s.logger.Info("substitutions generated",
		zap.String("school_id", req.SchoolID),
		zap.String("date", req.Date),
		zap.Bool("persisted", persist),
		zap.Int("assigned", len(resp.Substitutions)),
		zap.Int("skipped", len(resp.Skipped)))

	return resp, nil
}

// checkDeadline is advisory: a missed deadline is reported as a top-level
// error but never aborts the run, since late approvals still need coverage.
func (s *SubstitutionService) checkDeadline(rc *ResolvedConstraints, req dto.GenerateSubstitutionsRequest, resp *dto.GenerateSubstitutionsResponse) {
	enforce := rc.Config.EnforceLeaveDeadline
	if req.EnforceDeadline != nil {
		enforce = *req.EnforceDeadline
	}
	if !enforce {
		return
	}
	now := s.now()
	deadline := time.Date(now.Year(), now.Month(), now.Day(), rc.Config.LeaveDeadlineHour, rc.Config.LeaveDeadlineMinute, 0, 0, now.Location())
	if now.After(deadline) {
		resp.Errors = append(resp.Errors, fmt.Sprintf("leave deadline %02d:%02d has passed; approvals made after it may be missing from this run",
			rc.Config.LeaveDeadlineHour, rc.Config.LeaveDeadlineMinute))
	}
}

// subEnv is the read-only context shared by every period of one run.
type subEnv struct {
	day          int
	maxSubs      int
	lunchPeriod  int
	roster       []models.Teacher
	teacherByID  map[string]models.Teacher
	absent       map[string]bool
	onDuty       map[string]bool
	regularBusy  map[string]map[int]bool
	regularCount map[string]int
	teacherSlots map[string][]models.TimetableSlot
	qualified    map[string]map[string]bool
	sectionByID  map[string]models.Section
	state        *subState
}

func (s *SubstitutionService) buildEnv(
	rc *ResolvedConstraints,
	req dto.GenerateSubstitutionsRequest,
	leaves []models.LeaveRequest,
	roster []models.Teacher,
	quals []models.TeacherSubject,
	allSlots []models.TimetableSlot,
	sections []models.Section,
	existing []models.Substitution,
	day int,
) *subEnv {
	env := &subEnv{
		day:          day,
		maxSubs:      rc.Config.MaxSubsPerDay,
		lunchPeriod:  rc.Config.LunchPeriod,
		teacherByID:  make(map[string]models.Teacher, len(roster)),
		absent:       map[string]bool{},
		onDuty:       map[string]bool{},
		regularBusy:  map[string]map[int]bool{},
		regularCount: map[string]int{},
		teacherSlots: map[string][]models.TimetableSlot{},
		qualified:    map[string]map[string]bool{},
		sectionByID:  make(map[string]models.Section, len(sections)),
		state:        &subState{subCount: map[string]int{}, subPeriods: map[string]map[int]bool{}},
	}
	if req.MaxSubsPerTeacher != nil {
		env.maxSubs = *req.MaxSubsPerTeacher
	}

	active := roster[:0:0]
	for _, t := range roster {
		if !t.Active {
			continue
		}
		active = append(active, t)
		env.teacherByID[t.ID] = t
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	env.roster = active

	// Duty leaves keep the teacher on campus; they are tracked separately so
	// disqualification reports the duty, not an absence.
	for _, leave := range leaves {
		if leave.Type.Duty() {
			env.onDuty[leave.TeacherID] = true
			continue
		}
		env.absent[leave.TeacherID] = true
	}

	for _, slot := range allSlots {
		if slot.DayOfWeek != day {
			continue
		}
		if env.regularBusy[slot.TeacherID] == nil {
			env.regularBusy[slot.TeacherID] = map[int]bool{}
		}
		env.regularBusy[slot.TeacherID][slot.Period] = true
		env.regularCount[slot.TeacherID]++
		env.teacherSlots[slot.TeacherID] = append(env.teacherSlots[slot.TeacherID], slot)
	}
	for teacherID := range env.teacherSlots {
		slots := env.teacherSlots[teacherID]
		sort.Slice(slots, func(i, j int) bool { return slots[i].Period < slots[j].Period })
	}

	for _, q := range quals {
		if env.qualified[q.TeacherID] == nil {
			env.qualified[q.TeacherID] = map[string]bool{}
		}
		env.qualified[q.TeacherID][q.SubjectID] = true
	}

	for _, section := range sections {
		env.sectionByID[section.ID] = section
	}

	// Seed bookkeeping with substitutions already stored for the date so a
	// rerun never overloads teachers assigned by an earlier run.
	for _, sub := range existing {
		env.state.assign(sub.SubstituteID, sub.Period)
	}

	return env
}

// vacatedPeriods resolves which of the absent teacher's timetabled periods
// need coverage: all of them for full-day and duty leave, the pre-lunch
// periods for half-day leave, and only the listed periods for permission
// leave.
func (env *subEnv) vacatedPeriods(leave models.LeaveRequest) []models.TimetableSlot {
	slots := env.teacherSlots[leave.TeacherID]
	switch leave.Type {
	case models.LeaveHalfDay:
		var out []models.TimetableSlot
		for _, slot := range slots {
			if slot.Period < env.lunchPeriod {
				out = append(out, slot)
			}
		}
		return out
	case models.LeavePermission:
		wanted := map[int]bool{}
		for _, p := range leave.PeriodList() {
			wanted[p] = true
		}
		var out []models.TimetableSlot
		for _, slot := range slots {
			if wanted[slot.Period] {
				out = append(out, slot)
			}
		}
		return out
	default:
		return slots
	}
}

// coverPeriod scores every roster teacher for one vacated period and assigns
// the best positive scorer. When nobody survives, the skip carries the first
// candidate's disqualification reason.
func (s *SubstitutionService) coverPeriod(
	ctx context.Context,
	rc *ResolvedConstraints,
	env *subEnv,
	leave models.LeaveRequest,
	slot models.TimetableSlot,
	date time.Time,
	history map[string]bool,
) (*models.Substitution, *models.SkippedPeriod) {
	var best *models.Teacher
	bestScore := 0.0
	firstReason := ""

	for i := range env.roster {
		cand := env.roster[i]
		// The vacating teacher is no candidate for their own period and
		// carries no useful disqualification reason.
		if cand.ID == leave.TeacherID {
			continue
		}
		if reason := s.disqualifySub(rc, env, leave, cand, slot.Period); reason != "" {
			if firstReason == "" {
				firstReason = reason
			}
			continue
		}
		score := s.scoreSub(ctx, rc, env, leave, cand, slot, history)
		if score <= 0 {
			continue
		}
		if best == nil || score > bestScore {
			t := cand
			best = &t
			bestScore = score
		}
	}

	if best == nil {
		reason := firstReason
		if reason == "" {
			reason = "no eligible substitute with a positive score"
		}
		return nil, &models.SkippedPeriod{
			Period:          slot.Period,
			SectionID:       slot.SectionID,
			SubjectID:       slot.SubjectID,
			AbsentTeacherID: leave.TeacherID,
			Reason:          reason,
		}
	}

	env.state.assign(best.ID, slot.Period)
	return &models.Substitution{
		ID:              uuid.NewString(),
		SchoolID:        slot.SchoolID,
		Date:            date,
		Period:          slot.Period,
		SectionID:       slot.SectionID,
		SubjectID:       slot.SubjectID,
		AbsentTeacherID: leave.TeacherID,
		SubstituteID:    best.ID,
		LeaveRequestID:  leave.ID,
		Score:           bestScore,
	}, nil
}

// disqualifySub applies the hard checks. An empty string means eligible.
func (s *SubstitutionService) disqualifySub(rc *ResolvedConstraints, env *subEnv, leave models.LeaveRequest, cand models.Teacher, period int) string {
	if env.absent[cand.ID] {
		return "teacher is absent that day"
	}
	if env.onDuty[cand.ID] {
		return "teacher is on duty"
	}
	if cand.Role == models.TeacherRoleVicePrincipal && rc.Config.ExcludeVicePrincipal {
		return "vice principals are excluded from substitution"
	}
	if cand.Role == models.TeacherRolePrincipal && rc.Config.ExcludePrincipal {
		return "principals are excluded from substitution"
	}
	if env.regularBusy[cand.ID][period] {
		return "teacher has a regular class in this period"
	}
	if env.state.subPeriods[cand.ID][period] {
		return "teacher already substitutes in this period"
	}
	if env.state.subCount[cand.ID] >= env.maxSubs {
		return fmt.Sprintf("teacher reached the daily substitution cap of %d", env.maxSubs)
	}
	if env.regularCount[cand.ID]+env.state.subCount[cand.ID]+1 >= rc.Config.MaxPeriodsPerDay {
		return "assignment would push the teacher to the total daily period ceiling"
	}
	if rc.Config.MaxConsecutiveSubs > 0 && env.state.consecutiveSubRun(cand.ID, period) >= rc.Config.MaxConsecutiveSubs {
		return fmt.Sprintf("assignment would reach %d consecutive substitutions", rc.Config.MaxConsecutiveSubs)
	}
	if rc.Config.PreventBackToBack && env.state.subPeriods[cand.ID][period-1] {
		return "teacher substituted in the previous period"
	}
	return ""
}

func (s *SubstitutionService) scoreSub(
	ctx context.Context,
	rc *ResolvedConstraints,
	env *subEnv,
	leave models.LeaveRequest,
	cand models.Teacher,
	slot models.TimetableSlot,
	history map[string]bool,
) float64 {
	cfg := rc.Config
	score := cfg.BaseScore

	if env.qualified[cand.ID][slot.SubjectID] {
		score += cfg.SubjectMatchBonus
	}
	if s.hasTaught(ctx, cand.ID, slot.SectionID, history) {
		score += cfg.FamiliarityBonus
	}
	if section, ok := env.sectionByID[slot.SectionID]; ok && section.ClassTeacherID != nil && *section.ClassTeacherID == cand.ID {
		score += classTeacherBonus
	}

	gaps := 0
	if env.regularBusy[cand.ID][slot.Period-1] {
		gaps++
	}
	if env.regularBusy[cand.ID][slot.Period+1] {
		gaps++
	}
	score -= cfg.PeriodGapPenalty * float64(gaps)

	score -= cfg.SubLoadPenalty * float64(env.state.subCount[cand.ID])
	score -= cfg.ConsecutivePenalty * float64(env.state.consecutiveSubRun(cand.ID, slot.Period))

	// Teachers one period below the daily ceiling are still eligible but
	// pay the overload penalty.
	total := env.regularCount[cand.ID] + env.state.subCount[cand.ID]
	if total+1 >= cfg.MaxPeriodsPerDay-1 {
		score -= cfg.OverloadPenalty
	}

	if cfg.WingPriority {
		absent, ok := env.teacherByID[leave.TeacherID]
		if ok && cand.WingID != nil && absent.WingID != nil && *cand.WingID == *absent.WingID {
			score += cfg.WingMatchBonus
		}
	}

	return score
}

// hasTaught memoizes section teaching history lookups within one run.
func (s *SubstitutionService) hasTaught(ctx context.Context, teacherID, sectionID string, cache map[string]bool) bool {
	key := teacherID + "|" + sectionID
	if v, ok := cache[key]; ok {
		return v
	}
	taught, err := s.timetables.HasTaughtSection(ctx, teacherID, sectionID)
	if err != nil {
		s.logger.Warn("teaching history lookup failed", zap.String("teacher_id", teacherID), zap.Error(err))
		taught = false
	}
	cache[key] = taught
	return taught
}
