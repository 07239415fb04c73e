package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/school-ops-api/internal/models"
)

func newTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestTimetableRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	rows := sqlmock.NewRows([]string{"id", "school_id", "section_id", "day_of_week", "period", "subject_id", "teacher_id"}).
		AddRow("slot-1", "school-1", "sec-8a", 1, 1, "sub-math", "t-1").
		AddRow("slot-2", "school-1", "sec-8a", 1, 2, "sub-sci", "t-2")
	mock.ExpectQuery("SELECT id, school_id, section_id").
		WithArgs("school-1").
		WillReturnRows(rows)

	slots, err := repo.ListBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "sub-math", slots[0].SubjectID)
	assert.Equal(t, 2, slots[1].Period)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceForSections(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM timetable_slots").
		WithArgs("sec-8a", "sec-8b").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.TimetableSlot{
		{SchoolID: "school-1", SectionID: "sec-8a", DayOfWeek: 1, Period: 1, SubjectID: "sub-math", TeacherID: "t-1"},
		{SchoolID: "school-1", SectionID: "sec-8b", DayOfWeek: 1, Period: 1, SubjectID: "sub-sci", TeacherID: "t-2"},
	}
	err := repo.ReplaceForSections(context.Background(), []string{"sec-8a", "sec-8b"}, slots)
	require.NoError(t, err)
	assert.NotEmpty(t, slots[0].ID, "missing IDs are filled in before insert")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM timetable_slots").
		WithArgs("sec-8a").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.ReplaceForSections(context.Background(), []string{"sec-8a"}, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceNoSections(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	require.NoError(t, repo.ReplaceForSections(context.Background(), nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryHasTaughtSection(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	mock.ExpectQuery("SELECT 1 FROM timetable_slots").
		WithArgs("t-1", "sec-8a").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM timetable_slots").
		WithArgs("t-2", "sec-8a").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	taught, err := repo.HasTaughtSection(context.Background(), "t-1", "sec-8a")
	require.NoError(t, err)
	assert.True(t, taught)

	taught, err = repo.HasTaughtSection(context.Background(), "t-2", "sec-8a")
	require.NoError(t, err)
	assert.False(t, taught)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByTeacherAndDay(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()

	repo := NewTimetableRepository(db)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "period", "created_at"}).
		AddRow("slot-1", "t-1", 2, 3, time.Now())
	mock.ExpectQuery("SELECT id, school_id, section_id").
		WithArgs("t-1", 2).
		WillReturnRows(rows)

	slots, err := repo.ListByTeacherAndDay(context.Background(), "t-1", 2)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 3, slots[0].Period)
	require.NoError(t, mock.ExpectationsWereMet())
}
