package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

func TestBulletinRepositoryUpsertBatchCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	avg1, avg2 := 18.0, 12.0
	rank1, rank2 := 1, 2
	size := 3
	actor := "user-1"
	bulletins := []models.Bulletin{
		{AccountID: "acc", StudentID: "s1", Semester: "S1", AcademicYear: "2024-2025", Average: &avg1, Rank: &rank1, ClassSize: &size, GeneratedBy: &actor},
		{AccountID: "acc", StudentID: "s2", Semester: "S1", AcademicYear: "2024-2025", Average: &avg2, Rank: &rank2, ClassSize: &size, GeneratedBy: &actor},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, semester, academic_year)")).
		WithArgs(sqlmock.AnyArg(), "acc", "s1", "S1", "2024-2025", 18.0, 1, 3, "", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, semester, academic_year)")).
		WithArgs(sqlmock.AnyArg(), "acc", "s2", "S1", "2024-2025", 12.0, 2, 3, "", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertBatch(context.Background(), bulletins))
	assert.NotEmpty(t, bulletins[0].ID)
	assert.False(t, bulletins[1].GeneratedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryUpsertBatchClearsUnrankedRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	size := 4
	actor := "user-2"
	bulletins := []models.Bulletin{
		{ID: "b-1", AccountID: "acc", StudentID: "s1", Semester: "S1", AcademicYear: "2024-2025", ClassSize: &size, GeneratedBy: &actor},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DO UPDATE SET average = EXCLUDED.average, rank = EXCLUDED.rank")).
		WithArgs("b-1", "acc", "s1", "S1", "2024-2025", nil, nil, 4, "", sqlmock.AnyArg(), "user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertBatch(context.Background(), bulletins))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryUpsertBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bulletins").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	avg := 10.0
	err := repo.UpsertBatch(context.Background(), []models.Bulletin{{AccountID: "acc", StudentID: "s1", Average: &avg}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert bulletin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryUpsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	require.NoError(t, NewBulletinRepository(db).UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBulletinRepository(db)

	rows := sqlmock.NewRows([]string{"id", "account_id", "student_id", "semester", "academic_year", "average", "rank", "class_size", "appreciation", "generated_at", "generated_by", "student_number", "last_name", "first_name"}).
		AddRow("b1", "acc", "s1", "S1", "2024-2025", 18.0, 1, 3, "Bravo", time.Now(), "user-1", "E001", "Durand", "Zoé")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.rank ASC NULLS LAST")).
		WithArgs("acc", "class-1", "S1", "2024-2025").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), "acc", models.BulletinFilter{ClassID: "class-1", Semester: "S1", AcademicYear: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Durand", list[0].LastName)
	require.NotNil(t, list[0].Rank)
	assert.Equal(t, 1, *list[0].Rank)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulletinRepositorySetAppreciationNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE bulletins SET appreciation").
		WithArgs("acc", "missing", "Bien").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewBulletinRepository(db).SetAppreciation(context.Background(), "acc", "missing", "Bien")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
