package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/dto"
	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
)

type constraintResolver interface {
	Resolve(ctx context.Context, schoolID string) (*ResolvedConstraints, error)
}

type schedulerSectionReader interface {
	ListBySchool(ctx context.Context, schoolID, wingID string) ([]models.Section, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Section, error)
}

type schedulerTeacherReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
	ListPreferences(ctx context.Context, schoolID string) (map[string]*models.TeacherPreference, error)
}

type qualificationReader interface {
	ListTeacherSubjects(ctx context.Context, schoolID string) ([]models.TeacherSubject, error)
}

type timetableStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlot, error)
	ReplaceForSections(ctx context.Context, sectionIDs []string, slots []models.TimetableSlot) error
}

type snapshotStore interface {
	ListActive(ctx context.Context, schoolID string) ([]models.MasterTimetable, error)
	Create(ctx context.Context, snapshot *models.MasterTimetable) error
	Deactivate(ctx context.Context, id string) error
}

// Placement scoring constants. These are fixed engine behaviour, unlike the
// substitution weights which come from configuration.
const (
	placementBaseScore       = 100.0
	parallelSlotBonus        = 40.0
	groupDriftPenalty        = 20.0
	lightSubjectBonus        = 20.0
	labPeriodBonus           = 15.0
	preferredPeriodBonus     = 15.0
	avoidedPeriodPenalty     = 30.0
	firstOccurrenceBonus     = 10.0
	adjacentOccupiedPenalty  = 5.0
	languageAnchorBasePeriod = 2
)

// Quality score penalties per conflict type.
const (
	overlapConflictPenalty = 10.0
	limitConflictPenalty   = 8.0
	noTeacherPenalty       = 5.0
	otherConflictPenalty   = 3.0
	maxFillBonus           = 10.0
)

// TimetableService builds weekly timetables section by section with a greedy
// scorer, validates persisted timetables, and manages freeze snapshots.
type TimetableService struct {
	constraints constraintResolver
	sections    schedulerSectionReader
	teachers    schedulerTeacherReader
	quals       qualificationReader
	timetables  timetableStore
	snapshots   snapshotStore
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewTimetableService wires the timetable engine dependencies.
func NewTimetableService(
	constraints constraintResolver,
	sections schedulerSectionReader,
	teachers schedulerTeacherReader,
	quals qualificationReader,
	timetables timetableStore,
	snapshots snapshotStore,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		constraints: constraints,
		sections:    sections,
		teachers:    teachers,
		quals:       quals,
		timetables:  timetables,
		snapshots:   snapshots,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
	}
}

type slotKey struct {
	Day    int
	Period int
}

type teacherDayKey struct {
	TeacherID string
	Day       int
}

type sectionSubjectKey struct {
	SectionID string
	SubjectID string
}

type daySubjectKey struct {
	SectionID string
	SubjectID string
	Day       int
}

type roomSlotKey struct {
	RoomID string
	Day    int
	Period int
}

// candidate is one (subject, teacher) pairing a section may place into a slot.
type candidate struct {
	SubjectID string
	TeacherID string
}

// plannerState carries all greedy bookkeeping for one generation run. Every
// accepted placement updates the maps immediately so later slots see it.
type plannerState struct {
	teacherBusy      map[teacherDayKey]map[int]bool
	teacherDayCount  map[teacherDayKey]int
	teacherWeekCount map[string]int
	sectionWeekCount map[sectionSubjectKey]int
	sectionDayCount  map[daySubjectKey]int
	roomBusy         map[roomSlotKey]string
	reservations     map[slotKey]map[string]struct{}
}

func newPlannerState() *plannerState {
	return &plannerState{
		teacherBusy:      map[teacherDayKey]map[int]bool{},
		teacherDayCount:  map[teacherDayKey]int{},
		teacherWeekCount: map[string]int{},
		sectionWeekCount: map[sectionSubjectKey]int{},
		sectionDayCount:  map[daySubjectKey]int{},
		roomBusy:         map[roomSlotKey]string{},
		reservations:     map[slotKey]map[string]struct{}{},
	}
}

func (ps *plannerState) occupy(teacherID string, day, period int) {
	key := teacherDayKey{TeacherID: teacherID, Day: day}
	if ps.teacherBusy[key] == nil {
		ps.teacherBusy[key] = map[int]bool{}
	}
	ps.teacherBusy[key][period] = true
	ps.teacherDayCount[key]++
	ps.teacherWeekCount[teacherID]++
}

func (ps *plannerState) isBusy(teacherID string, day, period int) bool {
	return ps.teacherBusy[teacherDayKey{TeacherID: teacherID, Day: day}][period]
}

// consecutiveRun returns the length of the teaching run that would result
// from occupying the given period, scanning outward over already occupied
// neighbouring periods.
func (ps *plannerState) consecutiveRun(teacherID string, day, period int) int {
	periods := ps.teacherBusy[teacherDayKey{TeacherID: teacherID, Day: day}]
	run := 1
	for p := period - 1; periods[p]; p-- {
		run++
	}
	for p := period + 1; periods[p]; p++ {
		run++
	}
	return run
}

func (ps *plannerState) adjacentOccupied(teacherID string, day, period int) int {
	periods := ps.teacherBusy[teacherDayKey{TeacherID: teacherID, Day: day}]
	n := 0
	if periods[period-1] {
		n++
	}
	if periods[period+1] {
		n++
	}
	return n
}

// Generate builds a weekly timetable proposal for the requested sections.
// Conflicts are collected as data; the only errors returned are request,
// configuration or storage failures. The proposal is not persisted; see Apply.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid generate request: %v", err))
	}

	rc, err := s.constraints.Resolve(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	status, err := s.freezeStatus(ctx, req.SchoolID, req.WingID)
	if err != nil {
		return nil, err
	}
	if status.Frozen {
		s.logger.Info("generation blocked by freeze",
			zap.String("school_id", req.SchoolID),
			zap.String("snapshot_id", status.Snapshot.ID))
		return &dto.GenerateTimetableResponse{
			Conflicts: []models.ScheduleConflict{{
				Type:    models.ConflictConstraintViolation,
				Message: fmt.Sprintf("timetable is frozen by snapshot %q; unfreeze before regenerating", status.Snapshot.Name),
			}},
		}, nil
	}

	sections, err := s.sections.ListByIDs(ctx, req.SectionIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no matching sections found")
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })

	roster, err := s.teachers.ListBySchool(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	prefs, err := s.teachers.ListPreferences(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
	}
	quals, err := s.quals.ListTeacherSubjects(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher qualifications")
	}

	candidates := buildCandidates(rc, roster, quals)
	state := newPlannerState()
	planParallelSlots(rc, state)

	lightPeriods := toPeriodSet(rc.Config.LightPeriodList())
	labPeriods := toPeriodSet(rc.Config.LabPeriodList())

	var slots []models.TimetableSlot
	var conflicts []models.ScheduleConflict

	for _, section := range sections {
		for day := 1; day <= models.SchoolDays; day++ {
			for period := 1; period <= rc.Config.PeriodsPerDay; period++ {
				if period == rc.Config.LunchPeriod {
					continue
				}
				slot, conflict := s.placeSlot(rc, state, prefs, candidates, section, day, period, lightPeriods, labPeriods)
				if conflict != nil {
					conflicts = append(conflicts, *conflict)
					continue
				}
				slots = append(slots, *slot)
			}
		}
	}

	score := qualityScore(rc, slots, conflicts, len(sections))
	if s.metrics != nil {
		s.metrics.ObserveTimetableGeneration(len(slots), len(conflicts), score)
	}
	s.logger.Info("timetable generated",
		zap.String("school_id", req.SchoolID),
		zap.Int("sections", len(sections)),
		zap.Int("slots", len(slots)),
		zap.Int("conflicts", len(conflicts)),
		zap.Float64("score", score))

	return &dto.GenerateTimetableResponse{Slots: slots, Conflicts: conflicts, Score: score}, nil
}

// placeSlot picks the best scoring candidate for one section slot. When every
// candidate fails a hard check, the first candidate's blocking reason becomes
// the conflict so callers see why the slot stayed empty.
func (s *TimetableService) placeSlot(
	rc *ResolvedConstraints,
	state *plannerState,
	prefs map[string]*models.TeacherPreference,
	candidates []candidate,
	section models.Section,
	day, period int,
	lightPeriods, labPeriods map[int]struct{},
) (*models.TimetableSlot, *models.ScheduleConflict) {
	var best *candidate
	bestScore := 0.0
	var firstBlock *models.ScheduleConflict

	for i := range candidates {
		cand := candidates[i]
		if blockType, blockMsg := s.disqualify(rc, state, prefs, section, cand, day, period); blockType != "" {
			if firstBlock == nil {
				firstBlock = &models.ScheduleConflict{
					Type:      blockType,
					Message:   blockMsg,
					SectionID: section.ID,
					DayOfWeek: day,
					Period:    period,
					SubjectID: cand.SubjectID,
					TeacherID: cand.TeacherID,
				}
			}
			continue
		}

		score := s.scoreCandidate(rc, state, prefs, section, cand, day, period, lightPeriods, labPeriods)
		if best == nil || score > bestScore {
			c := cand
			best = &c
			bestScore = score
		}
	}

	if best == nil {
		if firstBlock != nil {
			return nil, firstBlock
		}
		return nil, &models.ScheduleConflict{
			Type:      models.ConflictNoTeacher,
			Message:   "no qualified teacher available for this slot",
			SectionID: section.ID,
			DayOfWeek: day,
			Period:    period,
		}
	}

	slot := &models.TimetableSlot{
		ID:        uuid.NewString(),
		SchoolID:  section.SchoolID,
		SectionID: section.ID,
		DayOfWeek: day,
		Period:    period,
		SubjectID: best.SubjectID,
		TeacherID: best.TeacherID,
		RoomID:    section.RoomID,
	}

	state.occupy(best.TeacherID, day, period)
	state.sectionWeekCount[sectionSubjectKey{SectionID: section.ID, SubjectID: best.SubjectID}]++
	state.sectionDayCount[daySubjectKey{SectionID: section.ID, SubjectID: best.SubjectID, Day: day}]++
	if section.RoomID != nil && *section.RoomID != "" {
		state.roomBusy[roomSlotKey{RoomID: *section.RoomID, Day: day, Period: period}] = section.ID
	}
	return slot, nil
}

// disqualify applies the hard placement checks. An empty ConflictType means
// the candidate survives.
func (s *TimetableService) disqualify(
	rc *ResolvedConstraints,
	state *plannerState,
	prefs map[string]*models.TeacherPreference,
	section models.Section,
	cand candidate,
	day, period int,
) (models.ConflictType, string) {
	weekKey := sectionSubjectKey{SectionID: section.ID, SubjectID: cand.SubjectID}
	if state.sectionWeekCount[weekKey] >= rc.PeriodsPerWeek[cand.SubjectID] {
		return models.ConflictPPWExceeded, fmt.Sprintf("subject %s already placed %d times this week", cand.SubjectID, state.sectionWeekCount[weekKey])
	}

	dayKey := daySubjectKey{SectionID: section.ID, SubjectID: cand.SubjectID, Day: day}
	if state.sectionDayCount[dayKey] >= rc.MaxPerDay[cand.SubjectID] {
		return models.ConflictDailyLimit, fmt.Sprintf("subject %s reached its daily limit", cand.SubjectID)
	}

	if state.isBusy(cand.TeacherID, day, period) {
		return models.ConflictTeacherOverlap, fmt.Sprintf("teacher %s already teaches in this period", cand.TeacherID)
	}

	dailyCap := rc.Config.MaxPeriodsPerDay
	if pref := prefs[cand.TeacherID]; pref != nil && pref.MaxPerDay > 0 && pref.MaxPerDay < dailyCap {
		dailyCap = pref.MaxPerDay
	}
	if state.teacherDayCount[teacherDayKey{TeacherID: cand.TeacherID, Day: day}] >= dailyCap {
		return models.ConflictDailyLimit, fmt.Sprintf("teacher %s reached the daily period cap", cand.TeacherID)
	}

	if state.teacherWeekCount[cand.TeacherID] >= rc.Config.MaxPeriodsPerWeek {
		return models.ConflictConstraintViolation, fmt.Sprintf("teacher %s reached the weekly period cap", cand.TeacherID)
	}

	if rc.Config.MaxConsecutive > 0 && state.consecutiveRun(cand.TeacherID, day, period) > rc.Config.MaxConsecutive {
		return models.ConflictConsecutiveLimit, fmt.Sprintf("teacher %s would exceed %d consecutive periods", cand.TeacherID, rc.Config.MaxConsecutive)
	}

	if rc.Config.EnforceRoomConflicts && section.RoomID != nil && *section.RoomID != "" {
		if holder, ok := state.roomBusy[roomSlotKey{RoomID: *section.RoomID, Day: day, Period: period}]; ok && holder != section.ID {
			return models.ConflictRoomOverlap, fmt.Sprintf("room %s already occupied by section %s", *section.RoomID, holder)
		}
	}

	return "", ""
}

func (s *TimetableService) scoreCandidate(
	rc *ResolvedConstraints,
	state *plannerState,
	prefs map[string]*models.TeacherPreference,
	section models.Section,
	cand candidate,
	day, period int,
	lightPeriods, labPeriods map[int]struct{},
) float64 {
	score := placementBaseScore
	key := slotKey{Day: day, Period: period}

	if members, ok := state.reservations[key]; ok {
		if _, reserved := members[cand.SubjectID]; reserved {
			score += parallelSlotBonus
		}
	}
	if group := rc.GroupOf(cand.SubjectID); group != nil {
		if _, reserved := state.reservations[key][cand.SubjectID]; !reserved {
			score -= groupDriftPenalty
		}
	}

	if _, light := rc.LightSubjects[cand.SubjectID]; light {
		if period == rc.Config.LunchPeriod+1 {
			score += lightSubjectBonus
		} else if _, ok := lightPeriods[period]; ok {
			score += lightSubjectBonus
		}
	}
	if _, lab := rc.LabSubjects[cand.SubjectID]; lab {
		if _, ok := labPeriods[period]; ok {
			score += labPeriodBonus
		}
	}

	if pref := prefs[cand.TeacherID]; pref != nil {
		if containsPeriod(pref.PreferredList(), period) {
			score += preferredPeriodBonus
		}
		if containsPeriod(pref.AvoidedList(), period) {
			score -= avoidedPeriodPenalty
		}
	}

	if state.sectionWeekCount[sectionSubjectKey{SectionID: section.ID, SubjectID: cand.SubjectID}] == 0 {
		score += firstOccurrenceBonus
	}

	score -= adjacentOccupiedPenalty * float64(state.adjacentOccupied(cand.TeacherID, day, period))
	return score
}

// buildCandidates produces the deterministic (subject, teacher) pairing list
// shared by every section: subjects sorted by ID, then qualified teachers
// sorted by ID.
func buildCandidates(rc *ResolvedConstraints, roster []models.Teacher, quals []models.TeacherSubject) []candidate {
	active := make(map[string]bool, len(roster))
	for _, t := range roster {
		if t.Active {
			active[t.ID] = true
		}
	}

	bySubject := map[string][]string{}
	for _, q := range quals {
		if active[q.TeacherID] {
			bySubject[q.SubjectID] = append(bySubject[q.SubjectID], q.TeacherID)
		}
	}

	subjectIDs := make([]string, 0, len(rc.Subjects))
	for id, subject := range rc.Subjects {
		if subject.Active && subject.PeriodsPerWeek > 0 {
			subjectIDs = append(subjectIDs, id)
		}
	}
	sort.Strings(subjectIDs)

	var candidates []candidate
	for _, subjectID := range subjectIDs {
		teacherIDs := bySubject[subjectID]
		sort.Strings(teacherIDs)
		for _, teacherID := range teacherIDs {
			candidates = append(candidates, candidate{SubjectID: subjectID, TeacherID: teacherID})
		}
	}
	return candidates
}

// planParallelSlots reserves shared (day, period) blocks for language and
// stream groups before placement starts. Each group is anchored at an
// increasing period, language groups first, and its occurrences are spread
// evenly over the week.
func planParallelSlots(rc *ResolvedConstraints, state *plannerState) {
	type plannedGroup struct {
		members []string
	}
	var groups []plannedGroup

	langKeys := make([]string, 0, len(rc.LanguageGroups))
	for key := range rc.LanguageGroups {
		langKeys = append(langKeys, string(key))
	}
	sort.Strings(langKeys)
	for _, key := range langKeys {
		groups = append(groups, plannedGroup{members: rc.LanguageGroups[models.LanguageGroup(key)]})
	}

	streamKeys := make([]string, 0, len(rc.StreamGroups))
	for key := range rc.StreamGroups {
		streamKeys = append(streamKeys, string(key))
	}
	sort.Strings(streamKeys)
	for _, key := range streamKeys {
		groups = append(groups, plannedGroup{members: rc.StreamGroups[models.StreamGroup(key)]})
	}

	for idx, group := range groups {
		if len(group.members) < 2 {
			continue
		}
		occurrences := minGroupPPW(rc, group.members)
		if occurrences <= 0 {
			continue
		}
		if occurrences > models.SchoolDays {
			occurrences = models.SchoolDays
		}

		period := languageAnchorBasePeriod + idx
		if period == rc.Config.LunchPeriod {
			period++
		}
		if period > rc.Config.PeriodsPerDay {
			period = rc.Config.PeriodsPerDay
		}

		for k := 0; k < occurrences; k++ {
			day := 1 + (k*models.SchoolDays)/occurrences
			key := slotKey{Day: day, Period: period}
			if state.reservations[key] == nil {
				state.reservations[key] = map[string]struct{}{}
			}
			for _, subjectID := range group.members {
				state.reservations[key][subjectID] = struct{}{}
			}
		}
	}
}

func minGroupPPW(rc *ResolvedConstraints, members []string) int {
	min := -1
	for _, id := range members {
		ppw := rc.PeriodsPerWeek[id]
		if min == -1 || ppw < min {
			min = ppw
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// qualityScore grades a proposal: 100 minus per-conflict penalties plus a
// fill-rate bonus, clamped to [0, 100].
func qualityScore(rc *ResolvedConstraints, slots []models.TimetableSlot, conflicts []models.ScheduleConflict, sectionCount int) float64 {
	score := 100.0
	for _, c := range conflicts {
		switch c.Type {
		case models.ConflictTeacherOverlap, models.ConflictRoomOverlap:
			score -= overlapConflictPenalty
		case models.ConflictPPWExceeded, models.ConflictDailyLimit, models.ConflictConsecutiveLimit:
			score -= limitConflictPenalty
		case models.ConflictNoTeacher:
			score -= noTeacherPenalty
		default:
			score -= otherConflictPenalty
		}
	}

	teachingPeriods := rc.Config.PeriodsPerDay
	if rc.Config.LunchPeriod >= 1 && rc.Config.LunchPeriod <= rc.Config.PeriodsPerDay {
		teachingPeriods--
	}
	capacity := sectionCount * teachingPeriods * models.SchoolDays
	if capacity > 0 {
		bonus := float64(len(slots)) / float64(capacity) * maxFillBonus
		if bonus > maxFillBonus {
			bonus = maxFillBonus
		}
		score += bonus
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Apply persists a generated proposal, replacing the named sections' slots in
// one transaction.
func (s *TimetableService) Apply(ctx context.Context, sectionIDs []string, slots []models.TimetableSlot) error {
	if len(sectionIDs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one section is required")
	}
	if err := s.timetables.ReplaceForSections(ctx, sectionIDs, slots); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
	}
	s.logger.Info("timetable applied", zap.Int("sections", len(sectionIDs)), zap.Int("slots", len(slots)))
	return nil
}

// Validate scans the persisted timetable for teacher double-booking, room
// double-booking and teacher daily cap violations. Violations come back as
// data; an empty list means the timetable is consistent.
func (s *TimetableService) Validate(ctx context.Context, schoolID, wingID string) (*dto.ValidateTimetableResponse, error) {
	rc, err := s.constraints.Resolve(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	sections, err := s.sections.ListBySchool(ctx, schoolID, wingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	inScope := make(map[string]models.Section, len(sections))
	for _, section := range sections {
		inScope[section.ID] = section
	}

	slots, err := s.timetables.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	var conflicts []models.ScheduleConflict
	teacherSeen := map[string]models.TimetableSlot{}
	roomSeen := map[string]models.TimetableSlot{}
	teacherDaily := map[teacherDayKey]int{}

	for _, slot := range slots {
		if _, ok := inScope[slot.SectionID]; !ok {
			continue
		}

		tKey := fmt.Sprintf("%s|%d|%d", slot.TeacherID, slot.DayOfWeek, slot.Period)
		if prior, dup := teacherSeen[tKey]; dup {
			conflicts = append(conflicts, models.ScheduleConflict{
				Type:      models.ConflictTeacherOverlap,
				Message:   fmt.Sprintf("teacher %s booked for sections %s and %s in the same period", slot.TeacherID, prior.SectionID, slot.SectionID),
				SectionID: slot.SectionID,
				DayOfWeek: slot.DayOfWeek,
				Period:    slot.Period,
				TeacherID: slot.TeacherID,
			})
		} else {
			teacherSeen[tKey] = slot
		}

		if rc.Config.EnforceRoomConflicts && slot.RoomID != nil && *slot.RoomID != "" {
			rKey := fmt.Sprintf("%s|%d|%d", *slot.RoomID, slot.DayOfWeek, slot.Period)
			if prior, dup := roomSeen[rKey]; dup && prior.SectionID != slot.SectionID {
				conflicts = append(conflicts, models.ScheduleConflict{
					Type:      models.ConflictRoomOverlap,
					Message:   fmt.Sprintf("room %s booked for sections %s and %s in the same period", *slot.RoomID, prior.SectionID, slot.SectionID),
					SectionID: slot.SectionID,
					DayOfWeek: slot.DayOfWeek,
					Period:    slot.Period,
					RoomID:    *slot.RoomID,
				})
			} else if !dup {
				roomSeen[rKey] = slot
			}
		}

		teacherDaily[teacherDayKey{TeacherID: slot.TeacherID, Day: slot.DayOfWeek}]++
	}

	for key, count := range teacherDaily {
		if count > rc.Config.MaxPeriodsPerDay {
			conflicts = append(conflicts, models.ScheduleConflict{
				Type:      models.ConflictDailyLimit,
				Message:   fmt.Sprintf("teacher %s teaches %d periods on day %d, cap is %d", key.TeacherID, count, key.Day, rc.Config.MaxPeriodsPerDay),
				DayOfWeek: key.Day,
				TeacherID: key.TeacherID,
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].DayOfWeek != conflicts[j].DayOfWeek {
			return conflicts[i].DayOfWeek < conflicts[j].DayOfWeek
		}
		if conflicts[i].Period != conflicts[j].Period {
			return conflicts[i].Period < conflicts[j].Period
		}
		return conflicts[i].TeacherID < conflicts[j].TeacherID
	})

	return &dto.ValidateTimetableResponse{Conflicts: conflicts, Valid: len(conflicts) == 0}, nil
}

// Freeze publishes the current timetable as an active master snapshot after a
// clean validation. A scope already frozen, or a timetable with violations,
// refuses the freeze.
func (s *TimetableService) Freeze(ctx context.Context, req dto.FreezeTimetableRequest, frozenBy string) (*models.MasterTimetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid freeze request: %v", err))
	}

	status, err := s.freezeStatus(ctx, req.SchoolID, req.WingID)
	if err != nil {
		return nil, err
	}
	if status.Frozen {
		return nil, appErrors.Clone(appErrors.ErrFrozen, fmt.Sprintf("scope already frozen by snapshot %q", status.Snapshot.Name))
	}

	validation, err := s.Validate(ctx, req.SchoolID, req.WingID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot freeze: timetable has %d unresolved conflicts", len(validation.Conflicts)))
	}

	snapshot := &models.MasterTimetable{
		ID:       uuid.NewString(),
		SchoolID: req.SchoolID,
		Name:     req.Name,
		Active:   true,
		FrozenBy: frozenBy,
	}
	if req.WingID != "" {
		wingID := req.WingID
		snapshot.WingID = &wingID
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create snapshot")
	}

	s.logger.Info("timetable frozen",
		zap.String("school_id", req.SchoolID),
		zap.String("wing_id", req.WingID),
		zap.String("snapshot_id", snapshot.ID))
	return snapshot, nil
}

// Unfreeze deactivates the active snapshot matching the exact scope. A wing
// unfreeze never deactivates a school-wide snapshot.
func (s *TimetableService) Unfreeze(ctx context.Context, schoolID, wingID string) (*models.MasterTimetable, error) {
	snapshots, err := s.snapshots.ListActive(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load snapshots")
	}

	for i := range snapshots {
		snap := snapshots[i]
		snapWing := ""
		if snap.WingID != nil {
			snapWing = *snap.WingID
		}
		if snapWing != wingID {
			continue
		}
		if err := s.snapshots.Deactivate(ctx, snap.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate snapshot")
		}
		s.logger.Info("timetable unfrozen", zap.String("school_id", schoolID), zap.String("snapshot_id", snap.ID))
		return &snap, nil
	}

	return nil, appErrors.Clone(appErrors.ErrNotFound, "no active snapshot for this scope")
}

// IsFrozen reports whether generation is currently blocked for a scope.
func (s *TimetableService) IsFrozen(ctx context.Context, schoolID, wingID string) (*dto.FreezeStatusResponse, error) {
	return s.freezeStatus(ctx, schoolID, wingID)
}

func (s *TimetableService) freezeStatus(ctx context.Context, schoolID, wingID string) (*dto.FreezeStatusResponse, error) {
	snapshots, err := s.snapshots.ListActive(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load snapshots")
	}

	// A school-scoped operation overlaps every wing, so any active snapshot
	// blocks it. A wing-scoped operation is blocked only by snapshots
	// covering that wing. School-wide snapshots take precedence in the
	// reported match.
	var match *models.MasterTimetable
	for i := range snapshots {
		snap := snapshots[i]
		if wingID != "" && !snap.CoversWing(wingID) {
			continue
		}
		if snap.WingID == nil {
			match = &snap
			break
		}
		if match == nil {
			match = &snap
		}
	}

	if match == nil {
		return &dto.FreezeStatusResponse{Frozen: false}, nil
	}
	return &dto.FreezeStatusResponse{Frozen: true, Snapshot: match}, nil
}

func toPeriodSet(periods []int) map[int]struct{} {
	set := make(map[int]struct{}, len(periods))
	for _, p := range periods {
		set[p] = struct{}{}
	}
	return set
}

func containsPeriod(periods []int, period int) bool {
	for _, p := range periods {
		if p == period {
			return true
		}
	}
	return false
}
