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

func newSubstitutionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSubstitutionRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newSubstitutionRepoMock(t)
	defer cleanup()

	repo := NewSubstitutionRepository(db)
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "period", "section_id", "substitute_id", "score"}).
		AddRow("sub-1", 1, "sec-8a", "t-sub1", 125.0).
		AddRow("sub-2", 3, "sec-8b", "t-sub2", 100.0)
	mock.ExpectQuery("SELECT (.+) FROM substitutions WHERE school_id = \\$1 AND date = \\$2").
		WithArgs("school-1", date).
		WillReturnRows(rows)

	subs, err := repo.ListByDate(context.Background(), "school-1", date)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "t-sub1", subs[0].SubstituteID)
	assert.Equal(t, 100.0, subs[1].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newSubstitutionRepoMock(t)
	defer cleanup()

	repo := NewSubstitutionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO substitutions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO substitutions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	subs := []models.Substitution{
		{SchoolID: "school-1", Period: 1, SectionID: "sec-8a", SubstituteID: "t-sub1"},
		{SchoolID: "school-1", Period: 2, SectionID: "sec-8a", SubstituteID: "t-sub2"},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), subs))
	assert.NotEmpty(t, subs[0].ID)
	assert.NotEmpty(t, subs[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryBulkCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newSubstitutionRepoMock(t)
	defer cleanup()

	repo := NewSubstitutionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO substitutions").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	subs := []models.Substitution{{SchoolID: "school-1", Period: 1, SectionID: "sec-8a"}}
	require.Error(t, repo.BulkCreate(context.Background(), subs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryBulkCreateEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newSubstitutionRepoMock(t)
	defer cleanup()

	repo := NewSubstitutionRepository(db)
	require.NoError(t, repo.BulkCreate(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryMarkNotified(t *testing.T) {
	db, mock, cleanup := newSubstitutionRepoMock(t)
	defer cleanup()

	repo := NewSubstitutionRepository(db)
	mock.ExpectExec("UPDATE substitutions SET notified").
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkNotified(context.Background(), "sub-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
