package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/school-ops-api/internal/models"
)

func newMasterTimetableRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestMasterTimetableRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMasterTimetableRepoMock(t)
	defer cleanup()

	repo := NewMasterTimetableRepository(db)
	rows := sqlmock.NewRows([]string{"id", "school_id", "wing_id", "name", "active"}).
		AddRow("snap-1", "school-1", nil, "Term 1", true).
		AddRow("snap-2", "school-1", "wing-1", "Primary Wing", true)
	mock.ExpectQuery("SELECT (.+) FROM master_timetables WHERE school_id = \\$1 AND active = TRUE").
		WithArgs("school-1").
		WillReturnRows(rows)

	snapshots, err := repo.ListActive(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Nil(t, snapshots[0].WingID)
	require.NotNil(t, snapshots[1].WingID)
	assert.Equal(t, "wing-1", *snapshots[1].WingID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMasterTimetableRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMasterTimetableRepoMock(t)
	defer cleanup()

	repo := NewMasterTimetableRepository(db)
	mock.ExpectExec("INSERT INTO master_timetables").
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.MasterTimetable{
		SchoolID: "school-1",
		Name:     "Term 1",
		FrozenBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), snapshot))
	assert.NotEmpty(t, snapshot.ID)
	assert.True(t, snapshot.Active)
	assert.False(t, snapshot.FrozenAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMasterTimetableRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newMasterTimetableRepoMock(t)
	defer cleanup()

	repo := NewMasterTimetableRepository(db)
	mock.ExpectExec("UPDATE master_timetables SET active = FALSE").
		WithArgs("snap-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "snap-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
