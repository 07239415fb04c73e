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

func newLeaveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestLeaveRepositoryListApprovedByDate(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "teacher_id", "type", "status"}).
		AddRow("leave-1", "school-1", "t-1", "FULL_DAY", "APPROVED").
		AddRow("leave-2", "school-1", "t-2", "HALF_DAY", "APPROVED")
	mock.ExpectQuery("SELECT (.+) FROM leave_requests WHERE school_id = \\$1 AND date = \\$2 AND status = \\$3").
		WithArgs("school-1", date, "APPROVED").
		WillReturnRows(rows)

	leaves, err := repo.ListApprovedByDate(context.Background(), "school-1", date)
	require.NoError(t, err)
	require.Len(t, leaves, 2)
	assert.Equal(t, "t-1", leaves[0].TeacherID)
	assert.Equal(t, models.LeaveHalfDay, leaves[1].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListWithFiltersAndCount(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	status := models.LeaveStatusPending
	rows := sqlmock.NewRows([]string{"id", "school_id", "teacher_id", "status"}).
		AddRow("leave-1", "school-1", "t-1", "PENDING")
	mock.ExpectQuery("SELECT (.+) FROM leave_requests WHERE school_id = \\$1 AND teacher_id = \\$2 AND status = \\$3").
		WithArgs("school-1", "t-1", "PENDING").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM leave_requests").
		WithArgs("school-1", "t-1", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	leaves, total, err := repo.List(context.Background(), models.LeaveFilter{
		SchoolID:  "school-1",
		TeacherID: "t-1",
		Status:    &status,
	})
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec("INSERT INTO leave_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	leave := &models.LeaveRequest{
		SchoolID:  "school-1",
		TeacherID: "t-1",
		Date:      time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Type:      models.LeaveFullDay,
		Status:    models.LeaveStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), leave))
	assert.NotEmpty(t, leave.ID)
	assert.False(t, leave.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec("UPDATE leave_requests SET status").
		WithArgs("leave-1", "APPROVED", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "leave-1", models.LeaveStatusApproved, "user-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
