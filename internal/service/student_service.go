package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/grading"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type studentRepository interface {
	List(ctx context.Context, accountID string, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, accountID, id string) (*models.StudentDetail, error)
	ExistsByNumber(ctx context.Context, studentNumber string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, accountID, id string) error
}

type classLookup interface {
	FindByID(ctx context.Context, accountID, id string) (*models.Class, error)
}

type studentGradeLister interface {
	ListByStudent(ctx context.Context, accountID, studentID string) ([]models.GradeDetail, error)
}

// StudentService exposes student operations.
type StudentService struct {
	repo      studentRepository
	classes   classLookup
	grades    studentGradeLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a student service.
func NewStudentService(repo studentRepository, classes classLookup, grades studentGradeLister, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, grades: grades, validator: validate, logger: logger}
}

// List returns students with pagination.
func (s *StudentService) List(ctx context.Context, accountID string, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, accountID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a student with their grades and overall average.
func (s *StudentService) Get(ctx context.Context, accountID, id string) (*models.StudentProfile, error) {
	student, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	profile := &models.StudentProfile{StudentDetail: *student, Grades: []models.GradeDetail{}}
	if s.grades != nil {
		grades, err := s.grades.ListByStudent(ctx, accountID, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student grades")
		}
		if grades != nil {
			profile.Grades = grades
		}
	}
	avg := grading.ComputeAverage(groupEntries(profile.Grades)[student.ID])
	profile.Average = avg.Pointer()
	profile.Mention = string(grading.MentionFor(avg))
	return profile, nil
}

// Create enrolls a student in a class of the account.
func (s *StudentService) Create(ctx context.Context, accountID string, req models.StudentRequest) (*models.Student, error) {
	student, err := s.buildStudent(ctx, accountID, req)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByNumber(ctx, student.StudentNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already exists")
	}
	student.Active = true
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, studentWriteError(err, "failed to create student")
	}
	return student, nil
}

// Update replaces the editable fields of a student.
func (s *StudentService) Update(ctx context.Context, accountID, id string, req models.StudentRequest) (*models.Student, error) {
	existing, err := s.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	student, err := s.buildStudent(ctx, accountID, req)
	if err != nil {
		return nil, err
	}
	student.ID = existing.ID
	student.Active = existing.Active
	student.EnrolledAt = existing.EnrolledAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, studentWriteError(err, "failed to update student")
	}
	return student, nil
}

// Deactivate soft deletes a student.
func (s *StudentService) Deactivate(ctx context.Context, accountID, id string) error {
	if err := s.repo.Deactivate(ctx, accountID, id); err != nil {
		return studentWriteError(err, "failed to deactivate student")
	}
	s.logger.Info("student deactivated", zap.String("account_id", accountID), zap.String("student_id", id))
	return nil
}

func (s *StudentService) buildStudent(ctx context.Context, accountID string, req models.StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.classes.FindByID(ctx, accountID, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	birthDate, err := parseOptionalDate(req.BirthDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "birth_date must use YYYY-MM-DD")
	}
	return &models.Student{
		AccountID:     accountID,
		ClassID:       req.ClassID,
		StudentNumber: strings.TrimSpace(req.StudentNumber),
		LastName:      strings.TrimSpace(req.LastName),
		FirstName:     strings.TrimSpace(req.FirstName),
		BirthDate:     birthDate,
		Gender:        req.Gender,
		Address:       strings.TrimSpace(req.Address),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
	}, nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func studentWriteError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "student number already exists")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
