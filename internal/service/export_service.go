package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/models"
	appErrors "github.com/campusops/school-ops-api/pkg/errors"
	"github.com/campusops/school-ops-api/pkg/export"
)

type exportTimetableReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlot, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.TimetableSlot, error)
}

type exportSubstitutionReader interface {
	ListByDate(ctx context.Context, schoolID string, date time.Time) ([]models.Substitution, error)
}

type exportLookupReader interface {
	ListBySchool(ctx context.Context, schoolID, wingID string) ([]models.Section, error)
}

type exportRosterReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

type exportSubjectReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
}

var dayNames = [models.SchoolDays + 1]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ExportService renders timetable grids and substitution sheets as CSV or PDF.
type ExportService struct {
	timetables exportTimetableReader
	subs       exportSubstitutionReader
	sections   exportLookupReader
	teachers   exportRosterReader
	subjects   exportSubjectReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(
	timetables exportTimetableReader,
	subs exportSubstitutionReader,
	sections exportLookupReader,
	teachers exportRosterReader,
	subjects exportSubjectReader,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		subs:       subs,
		sections:   sections,
		teachers:   teachers,
		subjects:   subjects,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// names resolves IDs to display names for one school.
type names struct {
	sections map[string]string
	teachers map[string]string
	subjects map[string]string
}

func (n names) section(id string) string { return orID(n.sections, id) }
func (n names) teacher(id string) string { return orID(n.teachers, id) }
func (n names) subject(id string) string { return orID(n.subjects, id) }

func orID(m map[string]string, id string) string {
	if name, ok := m[id]; ok {
		return name
	}
	return id
}

func (s *ExportService) lookups(ctx context.Context, schoolID string) (names, error) {
	out := names{sections: map[string]string{}, teachers: map[string]string{}, subjects: map[string]string{}}

	sections, err := s.sections.ListBySchool(ctx, schoolID, "")
	if err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	for _, sec := range sections {
		out.sections[sec.ID] = sec.Name
	}

	roster, err := s.teachers.ListBySchool(ctx, schoolID)
	if err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	for _, t := range roster {
		out.teachers[t.ID] = t.FullName
	}

	subjects, err := s.subjects.ListBySchool(ctx, schoolID)
	if err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	for _, sub := range subjects {
		out.subjects[sub.ID] = sub.Name
	}

	return out, nil
}

// TimetableDataset builds the tabular weekly timetable, optionally narrowed
// to one section.
func (s *ExportService) TimetableDataset(ctx context.Context, schoolID, sectionID string) (export.Dataset, error) {
	var slots []models.TimetableSlot
	var err error
	if sectionID != "" {
		slots, err = s.timetables.ListBySection(ctx, sectionID)
	} else {
		slots, err = s.timetables.ListBySchool(ctx, schoolID)
	}
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	lookup, err := s.lookups(ctx, schoolID)
	if err != nil {
		return export.Dataset{}, err
	}

	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.SectionID != b.SectionID {
			return lookup.section(a.SectionID) < lookup.section(b.SectionID)
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.Period < b.Period
	})

	ds := export.Dataset{Headers: []string{"Section", "Day", "Period", "Subject", "Teacher", "Room"}}
	for _, slot := range slots {
		room := ""
		if slot.RoomID != nil {
			room = *slot.RoomID
		}
		ds.Rows = append(ds.Rows, map[string]string{
			"Section": lookup.section(slot.SectionID),
			"Day":     dayName(slot.DayOfWeek),
			"Period":  fmt.Sprintf("%d", slot.Period),
			"Subject": lookup.subject(slot.SubjectID),
			"Teacher": lookup.teacher(slot.TeacherID),
			"Room":    room,
		})
	}
	return ds, nil
}

// SubstitutionDataset builds the substitution sheet for one date.
func (s *ExportService) SubstitutionDataset(ctx context.Context, schoolID string, date time.Time) (export.Dataset, error) {
	subs, err := s.subs.ListByDate(ctx, schoolID, date)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitutions")
	}

	lookup, err := s.lookups(ctx, schoolID)
	if err != nil {
		return export.Dataset{}, err
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Period != subs[j].Period {
			return subs[i].Period < subs[j].Period
		}
		return lookup.section(subs[i].SectionID) < lookup.section(subs[j].SectionID)
	})

	ds := export.Dataset{Headers: []string{"Date", "Period", "Section", "Subject", "Absent Teacher", "Substitute", "Score"}}
	for _, sub := range subs {
		ds.Rows = append(ds.Rows, map[string]string{
			"Date":           sub.Date.Format("2006-01-02"),
			"Period":         fmt.Sprintf("%d", sub.Period),
			"Section":        lookup.section(sub.SectionID),
			"Subject":        lookup.subject(sub.SubjectID),
			"Absent Teacher": lookup.teacher(sub.AbsentTeacherID),
			"Substitute":     lookup.teacher(sub.SubstituteID),
			"Score":          fmt.Sprintf("%.1f", sub.Score),
		})
	}
	return ds, nil
}

// Render serializes a dataset in the requested format.
func (s *ExportService) Render(ds export.Dataset, format models.ReportFormat, title string) ([]byte, error) {
	switch format {
	case models.ReportFormatCSV:
		return s.csv.Render(ds)
	case models.ReportFormatPDF:
		return s.pdf.Render(ds, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func dayName(day int) string {
	if day >= 1 && day <= models.SchoolDays {
		return dayNames[day]
	}
	return fmt.Sprintf("%d", day)
}
