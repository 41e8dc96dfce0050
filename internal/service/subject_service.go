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

type subjectRepository interface {
	List(ctx context.Context, accountID string, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, accountID, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Deactivate(ctx context.Context, accountID, id string) error
}

// SubjectService contains business logic for subjects.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects.
func (s *SubjectService) List(ctx context.Context, accountID string, filter models.SubjectFilter) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, accountID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, accountID, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create stores a new subject. Codes are upper-cased and unique per account.
func (s *SubjectService) Create(ctx context.Context, accountID string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{
		AccountID:   accountID,
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Coefficient: req.Coefficient,
		Description: strings.TrimSpace(req.Description),
		TeacherID:   req.TeacherID,
		Active:      true,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, subjectWriteError(err, "failed to create subject")
	}
	return subject, nil
}

// Update modifies a subject.
func (s *SubjectService) Update(ctx context.Context, accountID, id string, req models.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	subject.Name = strings.TrimSpace(req.Name)
	subject.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	subject.Coefficient = req.Coefficient
	subject.Description = strings.TrimSpace(req.Description)
	subject.TeacherID = req.TeacherID
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, subjectWriteError(err, "failed to update subject")
	}
	return subject, nil
}

// Deactivate hides a subject from new grade entry; its grades still count.
func (s *SubjectService) Deactivate(ctx context.Context, accountID, id string) error {
	if err := s.repo.Deactivate(ctx, accountID, id); err != nil {
		return subjectWriteError(err, "failed to deactivate subject")
	}
	return nil
}

func subjectWriteError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
