package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

var gradeDetailFields = []string{"id", "account_id", "student_id", "subject_id", "score", "max_score", "kind", "evaluated_on", "semester", "academic_year", "comment", "modified_by", "created_at", "updated_at", "subject_name", "subject_code", "coefficient"}

func TestGradeRepositoryListForStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	day := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(gradeDetailFields).
		AddRow("g1", "acc", "s1", "sub1", 15.0, 20.0, "EX", day, "S1", "2024-2025", "", nil, day, day, "Mathématiques", "MATH", 2.0).
		AddRow("g2", "acc", "s1", "sub2", 10.0, 20.0, "DS", day, "S1", "2023-2024", "", nil, day, day, "Physique", "PHY", 1.0)
	mock.ExpectQuery(regexp.QuoteMeta("g.student_id IN (?, ?) AND g.semester = ? AND (? = '' OR g.academic_year = ?)")).
		WithArgs("acc", "s1", "s2", "S1", "", "").
		WillReturnRows(rows)

	grades, err := repo.ListForStudents(context.Background(), "acc", []string{"s1", "s2"}, "S1", "")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "MATH", grades[0].SubjectCode)
	assert.Equal(t, 2.0, grades[0].Coefficient)
	assert.Equal(t, models.KindExam, grades[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListForStudentsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	grades, err := NewGradeRepository(db).ListForStudents(context.Background(), "acc", nil, "S1", "")
	require.NoError(t, err)
	assert.Empty(t, grades)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	late := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	early := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(gradeDetailFields).
		AddRow("g2", "acc", "s1", "sub2", 12.0, 20.0, "DS", late, "S2", "2024-2025", "", nil, late, late, "French", "FRA", 2.0).
		AddRow("g1", "acc", "s1", "sub1", 15.0, 20.0, "EX", early, "S1", "2024-2025", "", nil, early, early, "Mathematics", "MATH", 4.0)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY g.evaluated_on DESC, g.created_at DESC")).
		WithArgs("acc", "s1").
		WillReturnRows(rows)

	grades, err := NewGradeRepository(db).ListByStudent(context.Background(), "acc", "s1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, "g2", grades[0].ID)
	assert.Equal(t, 4.0, grades[1].Coefficient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.Grade{AccountID: "acc", StudentID: "s1", SubjectID: "sub1", Score: 12, MaxScore: 20, Kind: models.KindOral, EvaluatedOn: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	day := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.account_id = $1 AND st.class_id = $2 AND g.semester = $3 ORDER BY g.evaluated_on DESC")).
		WithArgs("acc", "class-1", "S1").
		WillReturnRows(sqlmock.NewRows(gradeDetailFields).
			AddRow("g1", "acc", "s1", "sub1", 15.0, 20.0, "EX", day, "S1", "2024-2025", "", nil, day, day, "Mathématiques", "MATH", 2.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grades g")).
		WithArgs("acc", "class-1", "S1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	grades, total, err := repo.List(context.Background(), "acc", models.GradeFilter{ClassID: "class-1", Semester: "S1"})
	require.NoError(t, err)
	assert.Len(t, grades, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
