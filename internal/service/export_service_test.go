package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/school-ops-api/internal/models"
)

type exportTimetableStub struct {
	school  []models.TimetableSlot
	section []models.TimetableSlot
}

func (s *exportTimetableStub) ListBySchool(_ context.Context, _ string) ([]models.TimetableSlot, error) {
	return s.school, nil
}

func (s *exportTimetableStub) ListBySection(_ context.Context, _ string) ([]models.TimetableSlot, error) {
	return s.section, nil
}

type exportSubsStub struct {
	subs []models.Substitution
}

func (s *exportSubsStub) ListByDate(_ context.Context, _ string, _ time.Time) ([]models.Substitution, error) {
	return s.subs, nil
}

func newExportFixture(t *testing.T, timetables *exportTimetableStub, subs *exportSubsStub) *ExportService {
	t.Helper()

	section := sectionFixture("sec-8a")
	section.Name = "8-A"
	teacher := teacherFixture("t-1")
	teacher.FullName = "Asha Rao"
	substitute := teacherFixture("t-2")
	substitute.FullName = "Vikram Iyer"
	math := subjectFixture("sub-math", 5)
	math.Name = "Mathematics"

	return NewExportService(
		timetables,
		subs,
		&sectionReaderStub{sections: []models.Section{section}},
		&teacherReaderStub{teachers: []models.Teacher{teacher, substitute}},
		&subjectReaderStub{subjects: []models.Subject{math}},
		zap.NewNop(),
	)
}

func TestExportTimetableDatasetResolvesNames(t *testing.T) {
	timetables := &exportTimetableStub{
		school: []models.TimetableSlot{
			{SectionID: "sec-8a", DayOfWeek: 2, Period: 3, SubjectID: "sub-math", TeacherID: "t-1", RoomID: strPtr("room-1")},
			{SectionID: "sec-8a", DayOfWeek: 1, Period: 1, SubjectID: "sub-math", TeacherID: "t-1"},
		},
	}
	svc := newExportFixture(t, timetables, &exportSubsStub{})

	ds, err := svc.TimetableDataset(context.Background(), "school-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Section", "Day", "Period", "Subject", "Teacher", "Room"}, ds.Headers)
	require.Len(t, ds.Rows, 2)

	// Rows come back ordered by section, day, period.
	assert.Equal(t, "Monday", ds.Rows[0]["Day"])
	assert.Equal(t, "1", ds.Rows[0]["Period"])
	assert.Equal(t, "8-A", ds.Rows[0]["Section"])
	assert.Equal(t, "Mathematics", ds.Rows[0]["Subject"])
	assert.Equal(t, "Asha Rao", ds.Rows[0]["Teacher"])
	assert.Equal(t, "", ds.Rows[0]["Room"])

	assert.Equal(t, "Tuesday", ds.Rows[1]["Day"])
	assert.Equal(t, "room-1", ds.Rows[1]["Room"])
}

func TestExportTimetableDatasetBySection(t *testing.T) {
	timetables := &exportTimetableStub{
		section: []models.TimetableSlot{
			{SectionID: "sec-8a", DayOfWeek: 1, Period: 2, SubjectID: "sub-math", TeacherID: "t-1"},
		},
	}
	svc := newExportFixture(t, timetables, &exportSubsStub{})

	ds, err := svc.TimetableDataset(context.Background(), "school-1", "sec-8a")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "2", ds.Rows[0]["Period"])
}

func TestExportSubstitutionDataset(t *testing.T) {
	date, _ := time.Parse("2006-01-02", mondayDate)
	subs := &exportSubsStub{subs: []models.Substitution{
		{Date: date, Period: 4, SectionID: "sec-8a", SubjectID: "sub-math", AbsentTeacherID: "t-1", SubstituteID: "t-2", Score: 112.5},
		{Date: date, Period: 1, SectionID: "sec-8a", SubjectID: "sub-math", AbsentTeacherID: "t-1", SubstituteID: "t-2", Score: 140},
	}}
	svc := newExportFixture(t, &exportTimetableStub{}, subs)

	ds, err := svc.SubstitutionDataset(context.Background(), "school-1", date)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "1", ds.Rows[0]["Period"])
	assert.Equal(t, mondayDate, ds.Rows[0]["Date"])
	assert.Equal(t, "Asha Rao", ds.Rows[0]["Absent Teacher"])
	assert.Equal(t, "Vikram Iyer", ds.Rows[0]["Substitute"])
	assert.Equal(t, "140.0", ds.Rows[0]["Score"])
	assert.Equal(t, "112.5", ds.Rows[1]["Score"])
}

func TestExportRenderFormats(t *testing.T) {
	timetables := &exportTimetableStub{
		school: []models.TimetableSlot{
			{SectionID: "sec-8a", DayOfWeek: 1, Period: 1, SubjectID: "sub-math", TeacherID: "t-1"},
		},
	}
	svc := newExportFixture(t, timetables, &exportSubsStub{})
	ds, err := svc.TimetableDataset(context.Background(), "school-1", "")
	require.NoError(t, err)

	csvBytes, err := svc.Render(ds, models.ReportFormatCSV, "Weekly Timetable")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvBytes)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Section,Day,Period,Subject,Teacher,Room", lines[0])
	assert.Contains(t, lines[1], "Mathematics")

	pdfBytes, err := svc.Render(ds, models.ReportFormatPDF, "Weekly Timetable")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfBytes), "%PDF"))

	_, err = svc.Render(ds, models.ReportFormat("xlsx"), "")
	require.Error(t, err)
}
