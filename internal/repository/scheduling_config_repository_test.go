package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/school-ops-api/internal/models"
)

func newSchedulingConfigRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSchedulingConfigRepositoryGetBySchool(t *testing.T) {
	db, mock, cleanup := newSchedulingConfigRepoMock(t)
	defer cleanup()

	repo := NewSchedulingConfigRepository(db)
	rows := sqlmock.NewRows([]string{"id", "school_id", "periods_per_day", "lunch_period", "max_periods_per_day", "max_subs_per_day"}).
		AddRow("cfg-1", "school-1", 8, 5, 6, 3)
	mock.ExpectQuery("SELECT id, school_id, periods_per_day").
		WithArgs("school-1").
		WillReturnRows(rows)

	cfg, err := repo.GetBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PeriodsPerDay)
	assert.Equal(t, 5, cfg.LunchPeriod)
	assert.Equal(t, 3, cfg.MaxSubsPerDay)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingConfigRepositoryGetBySchoolMissing(t *testing.T) {
	db, mock, cleanup := newSchedulingConfigRepoMock(t)
	defer cleanup()

	repo := NewSchedulingConfigRepository(db)
	mock.ExpectQuery("SELECT id, school_id, periods_per_day").
		WithArgs("school-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBySchool(context.Background(), "school-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows), "missing config must surface as sql.ErrNoRows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulingConfigRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newSchedulingConfigRepoMock(t)
	defer cleanup()

	repo := NewSchedulingConfigRepository(db)
	mock.ExpectExec("INSERT INTO scheduling_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	cfg := &models.SchedulingConfig{
		SchoolID:         "school-1",
		PeriodsPerDay:    8,
		LunchPeriod:      5,
		MaxPeriodsPerDay: 6,
		MaxSubsPerDay:    3,
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.NotEmpty(t, cfg.ID)
	assert.False(t, cfg.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
