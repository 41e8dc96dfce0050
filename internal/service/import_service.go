package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/dto"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
)

type importClassStore interface {
	FindByName(ctx context.Context, accountID, name, level, academicYear string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

type importStudentStore interface {
	ExistsByNumber(ctx context.Context, studentNumber string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
}

type importSubjectStore interface {
	FindByCode(ctx context.Context, accountID, code string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

type importObserver interface {
	ObserveImportRow(kind, status string)
}

var requiredColumns = map[models.ImportKind][]string{
	models.ImportStudents: {"student_number", "last_name", "first_name", "class_name", "academic_year"},
	models.ImportSubjects: {"name", "code", "coefficient"},
	models.ImportClasses:  {"name", "level", "academic_year"},
}

// ImportService turns uploaded spreadsheets into classes, students and subjects.
type ImportService struct {
	classes     importClassStore
	students    importStudentStore
	subjects    importSubjectStore
	metrics     importObserver
	logger      *zap.Logger
	maxFileSize int64
}

// NewImportService constructs an ImportService. metrics may be nil.
func NewImportService(classes importClassStore, students importStudentStore, subjects importSubjectStore, metrics importObserver, logger *zap.Logger, maxFileSize int64) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{classes: classes, students: students, subjects: subjects, metrics: metrics, logger: logger, maxFileSize: maxFileSize}
}

// Import processes every data row of the file. Structural problems fail the whole
// request before any write; row problems are reported per row.
func (s *ImportService) Import(ctx context.Context, req dto.ImportRequest) (*models.RowResults, error) {
	required, ok := requiredColumns[req.Kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown import kind %q", req.Kind))
	}
	if len(req.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if s.maxFileSize > 0 && int64(len(req.Data)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxFileSize))
	}

	ds, err := export.ReadTable(req.Filename, req.Data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable import file")
	}
	if missing := ds.Missing(required...); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing columns: "+strings.Join(missing, ", "))
	}

	results := &models.RowResults{Rows: make([]models.RowResult, 0, len(ds.Rows))}
	for i, row := range ds.Rows {
		var result models.RowResult
		switch req.Kind {
		case models.ImportStudents:
			result = s.importStudent(ctx, req.AccountID, row)
		case models.ImportSubjects:
			result = s.importSubject(ctx, req.AccountID, row)
		case models.ImportClasses:
			result = s.importClass(ctx, req.AccountID, row)
		}
		result.Row = i + 1
		results.Add(result)
		if s.metrics != nil {
			s.metrics.ObserveImportRow(string(req.Kind), string(result.Status))
		}
	}

	s.logger.Info("import processed",
		zap.String("account_id", req.AccountID),
		zap.String("kind", string(req.Kind)),
		zap.Int("total", results.Total),
		zap.Int("success", results.Success),
		zap.Int("skipped", results.Skipped),
		zap.Int("failed", results.Failed),
	)
	return results, nil
}

func (s *ImportService) importClass(ctx context.Context, accountID string, row map[string]string) models.RowResult {
	name, level, year := row["name"], row["level"], row["academic_year"]
	if name == "" || level == "" || year == "" {
		return failed("name, level and academic_year are required")
	}
	if _, err := s.classes.FindByName(ctx, accountID, name, level, year); err == nil {
		return skipped("class already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s.storeFailure("class", err)
	}
	class := &models.Class{AccountID: accountID, Name: name, Level: level, AcademicYear: year}
	if err := s.classes.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return skipped("class already exists")
		}
		return s.storeFailure("class", err)
	}
	return succeeded(class.ID)
}

func (s *ImportService) importSubject(ctx context.Context, accountID string, row map[string]string) models.RowResult {
	name, code := row["name"], strings.ToUpper(row["code"])
	if name == "" || code == "" {
		return failed("name and code are required")
	}
	coefficient, err := strconv.ParseFloat(strings.ReplaceAll(row["coefficient"], ",", "."), 64)
	if err != nil || coefficient < 0.5 || coefficient > 10 {
		return failed(fmt.Sprintf("invalid coefficient %q (expected 0.5 to 10)", row["coefficient"]))
	}
	if _, err := s.subjects.FindByCode(ctx, accountID, code); err == nil {
		return skipped("subject code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s.storeFailure("subject", err)
	}
	subject := &models.Subject{
		AccountID:   accountID,
		Name:        name,
		Code:        code,
		Coefficient: coefficient,
		Description: row["description"],
		Active:      true,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return skipped("subject code already exists")
		}
		return s.storeFailure("subject", err)
	}
	return succeeded(subject.ID)
}

func (s *ImportService) importStudent(ctx context.Context, accountID string, row map[string]string) models.RowResult {
	number, last, first := row["student_number"], row["last_name"], row["first_name"]
	if number == "" || last == "" || first == "" {
		return failed("student_number, last_name and first_name are required")
	}
	gender := strings.ToUpper(row["gender"])
	if gender != "" {
		gender = gender[:1]
	}
	if gender != models.GenderMale && gender != models.GenderFemale {
		return failed(fmt.Sprintf("invalid gender %q (expected M or F)", row["gender"]))
	}
	birthDate, err := parseOptionalDate(row["birth_date"])
	if err != nil {
		return failed(fmt.Sprintf("invalid birth_date %q (expected YYYY-MM-DD)", row["birth_date"]))
	}

	exists, err := s.students.ExistsByNumber(ctx, number)
	if err != nil {
		return s.storeFailure("student", err)
	}
	if exists {
		return skipped("student number already exists")
	}
	class, err := s.classes.FindByName(ctx, accountID, row["class_name"], row["level"], row["academic_year"])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failed(fmt.Sprintf("unknown class %q for %s", row["class_name"], row["academic_year"]))
		}
		return s.storeFailure("student", err)
	}

	student := &models.Student{
		AccountID:     accountID,
		ClassID:       class.ID,
		StudentNumber: number,
		LastName:      last,
		FirstName:     first,
		BirthDate:     birthDate,
		Gender:        gender,
		Address:       row["address"],
		Phone:         row["phone"],
		Email:         row["email"],
		Active:        true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return skipped("student number already exists")
		}
		return s.storeFailure("student", err)
	}
	return succeeded(student.ID)
}

func (s *ImportService) storeFailure(entity string, err error) models.RowResult {
	s.logger.Warn("import row failed", zap.String("entity", entity), zap.Error(err))
	return failed("failed to store " + entity)
}

func succeeded(id string) models.RowResult {
	return models.RowResult{Status: models.RowSuccess, ID: id}
}

func skipped(reason string) models.RowResult {
	return models.RowResult{Status: models.RowSkipped, Reason: reason}
}

func failed(reason string) models.RowResult {
	return models.RowResult{Status: models.RowFailed, Reason: reason}
}
