package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, accountID string, filter models.ClassFilter) ([]models.Class, error)
	FindByID(ctx context.Context, accountID, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, accountID, id string) error
}

// ClassService handles class use cases.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a class service.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns the classes of an account.
func (s *ClassService) List(ctx context.Context, accountID string, filter models.ClassFilter) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, accountID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, accountID, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create validates and stores a class.
func (s *ClassService) Create(ctx context.Context, accountID string, req models.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		AccountID:    accountID,
		Name:         strings.TrimSpace(req.Name),
		Level:        strings.TrimSpace(req.Level),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, classWriteError(err, "failed to create class")
	}
	return class, nil
}

// Update modifies a class.
func (s *ClassService) Update(ctx context.Context, accountID, id string, req models.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	class.Name = strings.TrimSpace(req.Name)
	class.Level = strings.TrimSpace(req.Level)
	class.AcademicYear = strings.TrimSpace(req.AcademicYear)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, classWriteError(err, "failed to update class")
	}
	return class, nil
}

// Delete removes a class that no longer has students.
func (s *ClassService) Delete(ctx context.Context, accountID, id string) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return appErrors.Clone(appErrors.ErrConflict, "class still has students")
		}
		return classWriteError(err, "failed to delete class")
	}
	s.logger.Info("class deleted", zap.String("account_id", accountID), zap.String("class_id", id))
	return nil
}

func classWriteError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "class already exists")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
