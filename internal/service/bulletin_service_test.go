package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
)

type stubClassLookup struct {
	classes map[string]*models.Class
}

func (s *stubClassLookup) FindByID(ctx context.Context, accountID, id string) (*models.Class, error) {
	c, ok := s.classes[id]
	if !ok || c.AccountID != accountID {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type stubClassStudents struct {
	students []models.Student
}

func (s *stubClassStudents) ListActiveByClass(ctx context.Context, accountID, classID string) ([]models.Student, error) {
	var out []models.Student
	for _, st := range s.students {
		if st.AccountID == accountID && st.ClassID == classID && st.Active {
			out = append(out, st)
		}
	}
	return out, nil
}

type stubGradeSource struct {
	grades   []models.GradeDetail
	lastYear string
}

func (s *stubGradeSource) ListForStudents(ctx context.Context, accountID string, studentIDs []string, semester, academicYear string) ([]models.GradeDetail, error) {
	s.lastYear = academicYear
	wanted := map[string]bool{}
	for _, id := range studentIDs {
		wanted[id] = true
	}
	var out []models.GradeDetail
	for _, g := range s.grades {
		if wanted[g.StudentID] && g.Semester == semester && (academicYear == "" || g.AcademicYear == academicYear) {
			out = append(out, g)
		}
	}
	return out, nil
}

type memoryBulletinStore struct {
	rows      map[string]models.Bulletin
	upserts   int
	upsertErr error
}

func newMemoryBulletinStore() *memoryBulletinStore {
	return &memoryBulletinStore{rows: map[string]models.Bulletin{}}
}

func (m *memoryBulletinStore) key(studentID, semester, year string) string {
	return studentID + "|" + semester + "|" + year
}

func (m *memoryBulletinStore) UpsertBatch(ctx context.Context, bulletins []models.Bulletin) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	for _, b := range bulletins {
		k := m.key(b.StudentID, b.Semester, b.AcademicYear)
		if existing, ok := m.rows[k]; ok {
			b.ID = existing.ID
			b.Appreciation = existing.Appreciation
		} else if b.ID == "" {
			b.ID = "b-" + b.StudentID
		}
		m.rows[k] = b
	}
	return nil
}

func (m *memoryBulletinStore) List(ctx context.Context, accountID string, filter models.BulletinFilter) ([]models.BulletinDetail, error) {
	var out []models.BulletinDetail
	for _, b := range m.rows {
		if b.AccountID == accountID && b.Semester == filter.Semester && b.AcademicYear == filter.AcademicYear {
			out = append(out, models.BulletinDetail{Bulletin: b})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Rank, out[j].Rank
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return *a < *b
	})
	return out, nil
}

func (m *memoryBulletinStore) SetAppreciation(ctx context.Context, accountID, id, appreciation string) error {
	for k, b := range m.rows {
		if b.ID == id && b.AccountID == accountID {
			b.Appreciation = appreciation
			m.rows[k] = b
			return nil
		}
	}
	return sql.ErrNoRows
}

type failingWorkbook struct{}

func (failingWorkbook) Render(report export.ClassReport) ([]byte, error) {
	return nil, errors.New("disk full")
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveGeneration(format, outcome string, duration time.Duration) {
	r.outcomes = append(r.outcomes, format+":"+outcome)
}

type recordingArchiver struct {
	stored []string
}

func (r *recordingArchiver) Store(accountID string, doc *export.Document) (*ArchivedDocument, error) {
	r.stored = append(r.stored, accountID+"/"+doc.Filename)
	return &ArchivedDocument{Path: accountID + "/" + doc.Filename, URL: "/api/v1/bulletins/archive/token"}, nil
}

type bulletinFixture struct {
	svc      *BulletinService
	store    *memoryBulletinStore
	grades   *stubGradeSource
	observer *recordingObserver
	students *stubClassStudents
}

func grade(studentID, subject string, coefficient, score, max float64, semester, year string, day int) models.GradeDetail {
	return models.GradeDetail{
		Grade: models.Grade{
			StudentID:    studentID,
			Score:        score,
			MaxScore:     max,
			Kind:         models.KindWrittenTest,
			EvaluatedOn:  time.Date(2024, 10, day, 0, 0, 0, 0, time.UTC),
			Semester:     semester,
			AcademicYear: year,
		},
		SubjectName: subject,
		SubjectCode: subject[:3],
		Coefficient: coefficient,
	}
}

func newBulletinFixture(t *testing.T, config BulletinConfig, workbook workbookRenderer) *bulletinFixture {
	t.Helper()
	classes := &stubClassLookup{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", AccountID: "acc-1", Name: "6eme A", Level: "6", AcademicYear: "2024-2025"},
		"class-2": {ID: "class-2", AccountID: "acc-1", Name: "Empty", Level: "6", AcademicYear: "2024-2025"},
	}}
	students := &stubClassStudents{students: []models.Student{
		{ID: "s-alice", AccountID: "acc-1", ClassID: "class-1", StudentNumber: "001", LastName: "Dupont", FirstName: "Alice", Active: true},
		{ID: "s-bob", AccountID: "acc-1", ClassID: "class-1", StudentNumber: "002", LastName: "Dupont", FirstName: "Alice", Active: true},
		{ID: "s-carl", AccountID: "acc-1", ClassID: "class-1", StudentNumber: "003", LastName: "Martin", FirstName: "Carl", Active: true},
		{ID: "s-dana", AccountID: "acc-1", ClassID: "class-1", StudentNumber: "004", LastName: "Zola", FirstName: "Dana", Active: true},
		{ID: "s-gone", AccountID: "acc-1", ClassID: "class-1", StudentNumber: "005", LastName: "Absent", FirstName: "Eve", Active: false},
	}}
	grades := &stubGradeSource{grades: []models.GradeDetail{
		grade("s-alice", "Mathematics", 4, 15, 20, "S1", "2024-2025", 1),
		grade("s-alice", "French", 2, 12, 20, "S1", "2024-2025", 2),
		grade("s-bob", "Mathematics", 4, 7, 10, "S1", "2024-2025", 1),
		grade("s-bob", "French", 2, 24, 40, "S1", "2024-2025", 2),
		grade("s-carl", "Mathematics", 4, 18, 20, "S1", "2024-2025", 1),
		grade("s-carl", "Mathematics", 4, 2, 20, "S1", "2023-2024", 3),
	}}
	store := newMemoryBulletinStore()
	observer := &recordingObserver{}
	svc := NewBulletinService(BulletinServiceDeps{
		Classes:   classes,
		Students:  students,
		Grades:    grades,
		Bulletins: store,
		Workbook:  workbook,
		Metrics:   observer,
	}, nil, nil, config)
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }
	return &bulletinFixture{svc: svc, store: store, grades: grades, observer: observer, students: students}
}

func generateRequest(format models.BulletinFormat) dto.GenerateBulletinsRequest {
	return dto.GenerateBulletinsRequest{AccountID: "acc-1", ClassID: "class-1", Semester: "S1", AcademicYear: "2024-2025", Format: format}
}

func TestBulletinServiceGenerateZipRanksAndPersists(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatPDF), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "bulletins_6eme_A_S1_2024-2025.zip", res.Document.Filename)
	assert.Equal(t, export.ContentTypeZip, res.Document.ContentType)
	assert.Equal(t, "2024-2025", fx.grades.lastYear)

	zr, err := zip.NewReader(bytes.NewReader(res.Document.Data), int64(len(res.Document.Data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"bulletin_Dupont_Alice_S1_2024-2025.pdf",
		"bulletin_Dupont_Alice_S1_2024-2025_2.pdf",
		"bulletin_Martin_Carl_S1_2024-2025.pdf",
		"bulletin_Zola_Dana_S1_2024-2025.pdf",
	}, names)

	// Carl 18.00, Alice 14.00, Bob 13.33 from 7/10 and 24/40, Dana has no grades.
	require.Len(t, fx.store.rows, 3)
	carl := fx.store.rows["s-carl|S1|2024-2025"]
	alice := fx.store.rows["s-alice|S1|2024-2025"]
	bob := fx.store.rows["s-bob|S1|2024-2025"]
	assert.Equal(t, 1, *carl.Rank)
	assert.Equal(t, 2, *alice.Rank)
	assert.Equal(t, 3, *bob.Rank)
	assert.InDelta(t, 14.0, *alice.Average, 0.001)
	assert.Equal(t, 4, *carl.ClassSize)
	assert.Equal(t, "user-1", *carl.GeneratedBy)
	_, hasDana := fx.store.rows["s-dana|S1|2024-2025"]
	assert.False(t, hasDana)
	assert.Equal(t, []string{"pdf:success"}, fx.observer.outcomes)
}

func TestBulletinServiceSemesterOnlyByDefault(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{}, nil)

	_, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatPDFGrouped), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "", fx.grades.lastYear)
	// Carl's 2/20 from the previous year is counted: (18*4 + 2*4) / 8 = 10.
	assert.InDelta(t, 10.0, *fx.store.rows["s-carl|S1|2024-2025"].Average, 0.001)
}

func TestBulletinServiceGroupedPDF(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatPDFGrouped), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "bulletins_6eme_A_S1_2024-2025.pdf", res.Document.Filename)
	assert.True(t, bytes.HasPrefix(res.Document.Data, []byte("%PDF")))
	assert.Equal(t, 4, bytes.Count(res.Document.Data, []byte("/Type /Page\n")))
}

func TestBulletinServiceWorkbook(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatExcel), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "bulletins_6eme_A_S1_2024-2025.xlsx", res.Document.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(res.Document.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Grades by Subject", "Dupont_Alice", "Dupont_Alice_2", "Martin_Carl", "Zola_Dana"}, f.GetSheetList())
	top, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "Martin", top)
	mention, err := f.GetCellValue("Summary", "G8")
	require.NoError(t, err)
	assert.Equal(t, "No grades", mention)
}

func TestBulletinServiceEmptyClassWritesNothing(t *testing.T) {
	formats := []models.BulletinFormat{
		models.BulletinFormatPDF,
		models.BulletinFormatPDFGrouped,
		models.BulletinFormatExcel,
	}
	for _, format := range formats {
		t.Run(string(format), func(t *testing.T) {
			fx := newBulletinFixture(t, BulletinConfig{}, nil)
			req := generateRequest(format)
			req.ClassID = "class-2"

			res, err := fx.svc.Generate(context.Background(), req, "user-1")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, appErrors.ErrEmptyClass))
			assert.Equal(t, http.StatusUnprocessableEntity, appErrors.FromError(err).Status)
			assert.Zero(t, fx.store.upserts)
			assert.Empty(t, fx.store.rows)
			assert.Equal(t, []string{string(format) + ":empty_class"}, fx.observer.outcomes)
		})
	}
}

func TestBulletinServiceUnknownClassAndInvalidFormat(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{}, nil)
	req := generateRequest(models.BulletinFormatPDF)
	req.ClassID = "missing"
	_, err := fx.svc.Generate(context.Background(), req, "user-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = fx.svc.Generate(context.Background(), generateRequest("docx"), "user-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, fx.store.upserts)
}

func TestBulletinServiceRenderFailure(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{}, failingWorkbook{})

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatExcel), "user-1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, appErrors.ErrRenderFailure))
	assert.Equal(t, []string{"excel:failure"}, fx.observer.outcomes)
}

func TestBulletinServiceUpsertFailureAborts(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{}, nil)
	fx.store.upsertErr = errors.New("connection reset")

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatPDF), "user-1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestBulletinServiceRegenerationKeepsAppreciation(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)
	ctx := context.Background()

	_, err := fx.svc.Generate(ctx, generateRequest(models.BulletinFormatPDF), "user-1")
	require.NoError(t, err)
	require.NoError(t, fx.svc.SetAppreciation(ctx, "acc-1", "b-s-carl", dto.SetAppreciationRequest{Appreciation: "Excellent work"}))

	_, err = fx.svc.Generate(ctx, generateRequest(models.BulletinFormatPDF), "user-2")
	require.NoError(t, err)
	assert.Len(t, fx.store.rows, 3)
	carl := fx.store.rows["s-carl|S1|2024-2025"]
	assert.Equal(t, "Excellent work", carl.Appreciation)
	assert.Equal(t, "user-2", *carl.GeneratedBy)
}

func TestBulletinServiceRegenerationClearsStaleRanks(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)
	ctx := context.Background()

	_, err := fx.svc.Generate(ctx, generateRequest(models.BulletinFormatPDF), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, *fx.store.rows["s-carl|S1|2024-2025"].Rank)

	var kept []models.GradeDetail
	for _, g := range fx.grades.grades {
		if g.StudentID != "s-carl" {
			kept = append(kept, g)
		}
	}
	fx.grades.grades = kept

	_, err = fx.svc.Generate(ctx, generateRequest(models.BulletinFormatPDF), "user-2")
	require.NoError(t, err)

	carl := fx.store.rows["s-carl|S1|2024-2025"]
	assert.Nil(t, carl.Average)
	assert.Nil(t, carl.Rank)
	assert.Equal(t, 4, *carl.ClassSize)
	assert.Equal(t, "user-2", *carl.GeneratedBy)
	assert.Equal(t, 1, *fx.store.rows["s-alice|S1|2024-2025"].Rank)
	assert.Equal(t, 2, *fx.store.rows["s-bob|S1|2024-2025"].Rank)

	listed, err := fx.svc.List(ctx, "acc-1", models.BulletinFilter{ClassID: "class-1", Semester: "S1", AcademicYear: "2024-2025"})
	require.NoError(t, err)
	var ranks []int
	for _, b := range listed {
		if b.Rank != nil {
			ranks = append(ranks, *b.Rank)
		}
	}
	assert.Equal(t, []int{1, 2}, ranks)
	require.Len(t, listed, 3)
	assert.Nil(t, listed[2].Rank)
	_, hasDana := fx.store.rows["s-dana|S1|2024-2025"]
	assert.False(t, hasDana)
}

func TestBulletinServiceDeactivatedStudentLosesRank(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)
	ctx := context.Background()

	_, err := fx.svc.Generate(ctx, generateRequest(models.BulletinFormatExcel), "user-1")
	require.NoError(t, err)

	for i := range fx.students.students {
		if fx.students.students[i].ID == "s-carl" {
			fx.students.students[i].Active = false
		}
	}
	_, err = fx.svc.Generate(ctx, generateRequest(models.BulletinFormatExcel), "user-1")
	require.NoError(t, err)

	carl := fx.store.rows["s-carl|S1|2024-2025"]
	assert.Nil(t, carl.Rank)
	assert.Nil(t, carl.Average)
	assert.Equal(t, 3, *carl.ClassSize)
	assert.Equal(t, 1, *fx.store.rows["s-alice|S1|2024-2025"].Rank)
}

func TestBulletinServiceArchivesDocument(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{FilterByYear: true}, nil)
	archiver := &recordingArchiver{}
	fx.svc.archive = archiver

	res, err := fx.svc.Generate(context.Background(), generateRequest(models.BulletinFormatPDFGrouped), "user-1")
	require.NoError(t, err)
	require.NotNil(t, res.Archive)
	assert.Equal(t, []string{"acc-1/bulletins_6eme_A_S1_2024-2025.pdf"}, archiver.stored)
}

func TestBulletinServiceListAndAppreciationErrors(t *testing.T) {
	fx := newBulletinFixture(t, BulletinConfig{}, nil)

	_, err := fx.svc.List(context.Background(), "acc-1", models.BulletinFilter{ClassID: "class-1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	err = fx.svc.SetAppreciation(context.Background(), "acc-1", "missing", dto.SetAppreciationRequest{Appreciation: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
