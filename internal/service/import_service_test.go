package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type memoryClassStore struct {
	classes []*models.Class
}

func (m *memoryClassStore) FindByName(ctx context.Context, accountID, name, level, academicYear string) (*models.Class, error) {
	for _, c := range m.classes {
		if c.AccountID == accountID && strings.EqualFold(c.Name, name) && c.AcademicYear == academicYear && (level == "" || c.Level == level) {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryClassStore) Create(ctx context.Context, class *models.Class) error {
	class.ID = "class-" + class.Name
	m.classes = append(m.classes, class)
	return nil
}

type memoryStudentStore struct {
	students []*models.Student
}

func (m *memoryStudentStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	for _, s := range m.students {
		if s.StudentNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStudentStore) Create(ctx context.Context, student *models.Student) error {
	student.ID = "st-" + student.StudentNumber
	m.students = append(m.students, student)
	return nil
}

type memorySubjectStore struct {
	subjects []*models.Subject
}

func (m *memorySubjectStore) FindByCode(ctx context.Context, accountID, code string) (*models.Subject, error) {
	for _, s := range m.subjects {
		if s.AccountID == accountID && strings.EqualFold(s.Code, code) {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memorySubjectStore) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "sub-" + subject.Code
	m.subjects = append(m.subjects, subject)
	return nil
}

type countingImportObserver struct {
	counts map[string]int
}

func (c *countingImportObserver) ObserveImportRow(kind, status string) {
	c.counts[kind+":"+status]++
}

type importFixture struct {
	svc      *ImportService
	classes  *memoryClassStore
	students *memoryStudentStore
	subjects *memorySubjectStore
	metrics  *countingImportObserver
}

func newImportFixture() *importFixture {
	fx := &importFixture{
		classes: &memoryClassStore{classes: []*models.Class{
			{ID: "class-6A", AccountID: "acc-1", Name: "6A", Level: "6", AcademicYear: "2024-2025"},
		}},
		students: &memoryStudentStore{students: []*models.Student{{ID: "old", StudentNumber: "S-001"}}},
		subjects: &memorySubjectStore{subjects: []*models.Subject{{ID: "sub-MATH", AccountID: "acc-1", Code: "MATH"}}},
		metrics:  &countingImportObserver{counts: map[string]int{}},
	}
	fx.svc = NewImportService(fx.classes, fx.students, fx.subjects, fx.metrics, nil, 1024)
	return fx
}

func TestImportServiceStudents(t *testing.T) {
	fx := newImportFixture()
	csv := "Student Number;Last Name;First Name;Class Name;Academic Year;Gender;Birth Date\n" +
		"S-001;Known;Kid;6A;2024-2025;M;2012-01-01\n" +
		"S-002;Durand;Lea;6a;2024-2025;F;2012-03-04\n" +
		"S-003;Ghost;Kid;9Z;2024-2025;M;\n" +
		"S-004;Bad;Date;6A;2024-2025;M;04/03/2012\n" +
		";;;;;;\n"

	res, err := fx.svc.Import(context.Background(), dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportStudents, Filename: "students.csv", Data: []byte(csv)})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, models.RowSkipped, res.Rows[0].Status)
	assert.Equal(t, "st-S-002", res.Rows[1].ID)
	assert.Contains(t, res.Rows[2].Reason, "unknown class")
	assert.Contains(t, res.Rows[3].Reason, "birth_date")

	created := fx.students.students[1]
	assert.Equal(t, "class-6A", created.ClassID)
	assert.Equal(t, "acc-1", created.AccountID)
	assert.True(t, created.Active)
	assert.Equal(t, 1, fx.metrics.counts["students:success"])
	assert.Equal(t, 2, fx.metrics.counts["students:failed"])
}

func TestImportServiceSubjectsAndClasses(t *testing.T) {
	fx := newImportFixture()
	subjects := "name,code,coefficient\nMathematics,math,4\nPhysics,phy,\"2,5\"\nArt,art,12\n"
	res, err := fx.svc.Import(context.Background(), dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportSubjects, Filename: "subjects.csv", Data: []byte(subjects)})
	require.NoError(t, err)
	assert.Equal(t, []models.RowStatus{models.RowSkipped, models.RowSuccess, models.RowFailed}, []models.RowStatus{res.Rows[0].Status, res.Rows[1].Status, res.Rows[2].Status})
	assert.Equal(t, 2.5, fx.subjects.subjects[1].Coefficient)
	assert.Equal(t, "PHY", fx.subjects.subjects[1].Code)

	classes := "name,level,academic_year\n6A,6,2024-2025\n5B,5,2024-2025\n"
	res, err = fx.svc.Import(context.Background(), dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportClasses, Filename: "classes.csv", Data: []byte(classes)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Success)
}

func TestImportServiceMissingColumnsWritesNothing(t *testing.T) {
	fx := newImportFixture()
	_, err := fx.svc.Import(context.Background(), dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportSubjects, Filename: "subjects.csv", Data: []byte("name,code\nMath,M\n")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, appErrors.FromError(err).Message, "coefficient")
	assert.Len(t, fx.subjects.subjects, 1)
}

func TestImportServiceRejectsBadFiles(t *testing.T) {
	fx := newImportFixture()
	ctx := context.Background()

	_, err := fx.svc.Import(ctx, dto.ImportRequest{AccountID: "acc-1", Kind: "teachers", Filename: "x.csv", Data: []byte("a\n1\n")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.svc.Import(ctx, dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportClasses, Filename: "x.txt", Data: []byte("a\n1\n")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.svc.Import(ctx, dto.ImportRequest{AccountID: "acc-1", Kind: models.ImportClasses, Filename: "x.csv", Data: []byte(strings.Repeat("a", 2048))})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
