package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
)

type bulletinStudentSource interface {
	ListActiveByClass(ctx context.Context, accountID, classID string) ([]models.Student, error)
}

type bulletinGradeSource interface {
	ListForStudents(ctx context.Context, accountID string, studentIDs []string, semester, academicYear string) ([]models.GradeDetail, error)
}

type bulletinStore interface {
	UpsertBatch(ctx context.Context, bulletins []models.Bulletin) error
	List(ctx context.Context, accountID string, filter models.BulletinFilter) ([]models.BulletinDetail, error)
	SetAppreciation(ctx context.Context, accountID, id, appreciation string) error
}

type pdfRenderer interface {
	RenderStudent(report export.ClassReport, student export.StudentReport) ([]byte, error)
	RenderClass(report export.ClassReport) ([]byte, error)
}

type workbookRenderer interface {
	Render(report export.ClassReport) ([]byte, error)
}

type documentArchiver interface {
	Store(accountID string, doc *export.Document) (*ArchivedDocument, error)
}

type generationObserver interface {
	ObserveGeneration(format, outcome string, duration time.Duration)
}

// BulletinConfig tunes generation.
type BulletinConfig struct {
	SchoolName string
	// FilterByYear restricts grades to the requested academic year. Off by default,
	// which aggregates every grade carrying the semester label.
	FilterByYear bool
}

// GenerationResult is a rendered class document plus its archive link when archiving is on.
type GenerationResult struct {
	Document *export.Document
	Archive  *ArchivedDocument
}

// BulletinService computes, persists and renders class report cards.
type BulletinService struct {
	classes   classLookup
	students  bulletinStudentSource
	grades    bulletinGradeSource
	bulletins bulletinStore
	pdf       pdfRenderer
	workbook  workbookRenderer
	archive   documentArchiver
	metrics   generationObserver
	validator *validator.Validate
	logger    *zap.Logger
	config    BulletinConfig
	now       func() time.Time
}

// BulletinServiceDeps groups the collaborators of BulletinService.
type BulletinServiceDeps struct {
	Classes   classLookup
	Students  bulletinStudentSource
	Grades    bulletinGradeSource
	Bulletins bulletinStore
	PDF       pdfRenderer
	Workbook  workbookRenderer
	// Archive is optional.
	Archive documentArchiver
	// Metrics is optional.
	Metrics generationObserver
}

// NewBulletinService constructs a BulletinService.
func NewBulletinService(deps BulletinServiceDeps, validate *validator.Validate, logger *zap.Logger, config BulletinConfig) *BulletinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.PDF == nil {
		deps.PDF = export.NewPDFExporter()
	}
	if deps.Workbook == nil {
		deps.Workbook = export.NewXLSXExporter()
	}
	return &BulletinService{
		classes:   deps.Classes,
		students:  deps.Students,
		grades:    deps.Grades,
		bulletins: deps.Bulletins,
		pdf:       deps.PDF,
		workbook:  deps.Workbook,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Generate computes the bulletins of a class for one semester, stores them and renders
// the requested format. Nothing is written for an empty class.
func (s *BulletinService) Generate(ctx context.Context, req dto.GenerateBulletinsRequest, actorID string) (*GenerationResult, error) {
	start := s.now()
	result, err := s.generate(ctx, req, actorID)
	s.observe(string(req.Format), err, s.now().Sub(start))
	return result, err
}

func (s *BulletinService) generate(ctx context.Context, req dto.GenerateBulletinsRequest, actorID string) (*GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	class, err := s.classes.FindByID(ctx, req.AccountID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.students.ListActiveByClass(ctx, req.AccountID, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyClass, "no active students in this class")
	}

	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	year := ""
	if s.config.FilterByYear {
		year = req.AcademicYear
	}
	grades, err := s.grades.ListForStudents(ctx, req.AccountID, ids, req.Semester, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	entries := groupEntries(grades)

	inputs := make([]grading.RankInput, len(students))
	for i, st := range students {
		inputs[i] = grading.RankInput{StudentID: st.ID, Average: grading.ComputeAverage(entries[st.ID])}
	}
	ranked := grading.Rank(inputs)

	filter := models.BulletinFilter{ClassID: class.ID, Semester: req.Semester, AcademicYear: req.AcademicYear}
	previous, err := s.bulletins.List(ctx, req.AccountID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bulletins")
	}

	generatedAt := s.now().UTC()
	classSize := len(students)
	rows := make([]models.Bulletin, 0, len(ranked)+len(previous))
	written := make(map[string]bool, len(ranked))
	rankedCount := 0
	for _, r := range ranked {
		if !r.Average.Defined {
			continue
		}
		rankedCount++
		written[r.StudentID] = true
		rows = append(rows, models.Bulletin{
			AccountID:    req.AccountID,
			StudentID:    r.StudentID,
			Semester:     req.Semester,
			AcademicYear: req.AcademicYear,
			Average:      r.Average.Pointer(),
			Rank:         r.Rank,
			ClassSize:    &classSize,
			GeneratedAt:  generatedAt,
			GeneratedBy:  actorRef(actorID),
		})
	}
	// A stored bulletin whose student no longer has an average, or left the active
	// roster, loses its average and rank so persisted ranks stay 1..N.
	for _, b := range previous {
		if written[b.StudentID] {
			continue
		}
		written[b.StudentID] = true
		rows = append(rows, models.Bulletin{
			AccountID:    req.AccountID,
			StudentID:    b.StudentID,
			Semester:     req.Semester,
			AcademicYear: req.AcademicYear,
			ClassSize:    &classSize,
			GeneratedAt:  generatedAt,
			GeneratedBy:  actorRef(actorID),
		})
	}
	if err := s.bulletins.UpsertBatch(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save bulletins")
	}

	stored, err := s.bulletins.List(ctx, req.AccountID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload bulletins")
	}
	persisted := make(map[string]models.BulletinDetail, len(stored))
	for _, b := range stored {
		persisted[b.StudentID] = b
	}

	rankByID := make(map[string]grading.Ranked, len(ranked))
	for _, r := range ranked {
		rankByID[r.StudentID] = r
	}

	report := export.ClassReport{
		SchoolName:   s.config.SchoolName,
		ClassName:    class.Name,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		GeneratedAt:  generatedAt,
		Students:     make([]export.StudentReport, 0, len(students)),
	}
	for _, st := range students {
		r := rankByID[st.ID]
		report.Students = append(report.Students, studentReport(st, entries[st.ID], r, persisted[st.ID]))
	}

	doc, err := s.render(report, req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRenderFailure.Code, appErrors.ErrRenderFailure.Status, "failed to generate bulletins")
	}

	result := &GenerationResult{Document: doc}
	if s.archive != nil {
		archived, err := s.archive.Store(req.AccountID, doc)
		if err != nil {
			s.logger.Warn("failed to archive bulletins", zap.String("class_id", class.ID), zap.Error(err))
		} else {
			result.Archive = archived
		}
	}

	s.logger.Info("bulletins generated",
		zap.String("account_id", req.AccountID),
		zap.String("class_id", class.ID),
		zap.String("semester", req.Semester),
		zap.String("academic_year", req.AcademicYear),
		zap.String("format", string(req.Format)),
		zap.Int("students", len(students)),
		zap.Int("ranked", rankedCount),
	)
	return result, nil
}

func (s *BulletinService) render(report export.ClassReport, req dto.GenerateBulletinsRequest) (*export.Document, error) {
	base := fmt.Sprintf("bulletins_%s_%s_%s",
		export.SafeFilePart(report.ClassName),
		export.SafeFilePart(req.Semester),
		export.SafeFilePart(req.AcademicYear),
	)

	switch req.Format {
	case models.BulletinFormatPDF:
		files := make([]export.ArchiveEntry, 0, len(report.Students))
		for _, student := range report.Students {
			data, err := s.pdf.RenderStudent(report, student)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", student.StudentNumber, err)
			}
			name := fmt.Sprintf("bulletin_%s_%s_%s_%s.pdf",
				export.SafeFilePart(student.LastName),
				export.SafeFilePart(student.FirstName),
				export.SafeFilePart(req.Semester),
				export.SafeFilePart(req.AcademicYear),
			)
			files = append(files, export.ArchiveEntry{Name: name, Data: data})
		}
		data, err := export.Archive(files, report.GeneratedAt)
		if err != nil {
			return nil, err
		}
		return &export.Document{Filename: base + ".zip", ContentType: export.ContentTypeZip, Data: data}, nil
	case models.BulletinFormatPDFGrouped:
		data, err := s.pdf.RenderClass(report)
		if err != nil {
			return nil, err
		}
		return &export.Document{Filename: base + ".pdf", ContentType: export.ContentTypePDF, Data: data}, nil
	case models.BulletinFormatExcel:
		data, err := s.workbook.Render(report)
		if err != nil {
			return nil, err
		}
		return &export.Document{Filename: base + ".xlsx", ContentType: export.ContentTypeXLSX, Data: data}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", req.Format)
	}
}

func (s *BulletinService) observe(format string, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrEmptyClass):
		outcome = OutcomeEmptyClass
	case errors.Is(err, appErrors.ErrValidation), errors.Is(err, appErrors.ErrNotFound):
		outcome = OutcomeInvalid
	default:
		outcome = OutcomeFailure
	}
	s.metrics.ObserveGeneration(format, outcome, elapsed)
}

// List returns the stored bulletins of a class for a period.
func (s *BulletinService) List(ctx context.Context, accountID string, filter models.BulletinFilter) ([]models.BulletinDetail, error) {
	if filter.ClassID == "" || filter.Semester == "" || filter.AcademicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id, semester and academic_year are required")
	}
	bulletins, err := s.bulletins.List(ctx, accountID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bulletins")
	}
	return bulletins, nil
}

// SetAppreciation updates the free-text appreciation kept across regenerations.
func (s *BulletinService) SetAppreciation(ctx context.Context, accountID, id string, req dto.SetAppreciationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appreciation")
	}
	if err := s.bulletins.SetAppreciation(ctx, accountID, id, req.Appreciation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "bulletin not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appreciation")
	}
	return nil
}

func groupEntries(grades []models.GradeDetail) map[string][]grading.Entry {
	out := make(map[string][]grading.Entry)
	for _, g := range grades {
		out[g.StudentID] = append(out[g.StudentID], grading.Entry{
			SubjectName: g.SubjectName,
			SubjectCode: g.SubjectCode,
			Coefficient: g.Coefficient,
			Score:       g.Score,
			MaxScore:    g.MaxScore,
			Kind:        g.Kind.Label(),
			EvaluatedOn: g.EvaluatedOn,
		})
	}
	return out
}

func studentReport(st models.Student, entries []grading.Entry, ranked grading.Ranked, stored models.BulletinDetail) export.StudentReport {
	mention := grading.MentionFor(ranked.Average)
	lines := grading.Breakdown(entries)
	report := export.StudentReport{
		StudentNumber: st.StudentNumber,
		LastName:      st.LastName,
		FirstName:     st.FirstName,
		Lines:         make([]export.GradeLine, 0, len(lines)),
		Average:       ranked.Average.Pointer(),
		Mention:       string(mention),
		MentionText:   mention.Appreciation(),
		Appreciation:  stored.Appreciation,
		Rank:          ranked.Rank,
		ClassSize:     ranked.ClassSize,
	}
	for _, line := range lines {
		report.Lines = append(report.Lines, export.GradeLine{
			SubjectName: line.SubjectName,
			SubjectCode: line.SubjectCode,
			Score:       line.Score,
			MaxScore:    line.MaxScore,
			Normalized:  line.Normalized,
			Kind:        line.Kind,
			Coefficient: line.Coefficient,
			EvaluatedOn: line.EvaluatedOn,
		})
	}
	return report
}
