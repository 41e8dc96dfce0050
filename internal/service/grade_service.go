package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, accountID string, filter models.GradeFilter) ([]models.GradeDetail, int, error)
	FindByID(ctx context.Context, accountID, id string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, accountID, id string) error
}

type gradeStudentLookup interface {
	FindByID(ctx context.Context, accountID, id string) (*models.StudentDetail, error)
	ListActiveByClass(ctx context.Context, accountID, classID string) ([]models.Student, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, accountID, id string) (*models.Subject, error)
}

// GradeService manages grade entry and corrections.
type GradeService struct {
	repo      gradeRepository
	students  gradeStudentLookup
	subjects  subjectLookup
	classes   classLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs a grade service.
func NewGradeService(repo gradeRepository, students gradeStudentLookup, subjects subjectLookup, classes classLookup, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, students: students, subjects: subjects, classes: classes, validator: validate, logger: logger}
}

// List returns grades with pagination.
func (s *GradeService) List(ctx context.Context, accountID string, filter models.GradeFilter) ([]models.GradeDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	grades, total, err := s.repo.List(ctx, accountID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create records one grade for a student of the account.
func (s *GradeService) Create(ctx context.Context, accountID, actorID string, req models.GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if _, err := s.students.FindByID(ctx, accountID, req.StudentID); err != nil {
		return nil, lookupError(err, "student")
	}
	if _, err := s.subjects.FindByID(ctx, accountID, req.SubjectID); err != nil {
		return nil, lookupError(err, "subject")
	}
	grade, err := buildGrade(req)
	if err != nil {
		return nil, err
	}
	grade.AccountID = accountID
	grade.ModifiedBy = actorRef(actorID)
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, gradeWriteError(err, "failed to create grade")
	}
	return grade, nil
}

// Update applies an administrative correction. Student and subject are fixed once recorded.
func (s *GradeService) Update(ctx context.Context, accountID, actorID, id string, req models.GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	existing, err := s.repo.FindByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	updated, err := buildGrade(req)
	if err != nil {
		return nil, err
	}
	existing.Score = updated.Score
	existing.MaxScore = updated.MaxScore
	existing.Kind = updated.Kind
	existing.EvaluatedOn = updated.EvaluatedOn
	existing.Semester = updated.Semester
	existing.AcademicYear = updated.AcademicYear
	existing.Comment = updated.Comment
	existing.ModifiedBy = actorRef(actorID)
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, gradeWriteError(err, "failed to update grade")
	}
	s.logger.Info("grade corrected", zap.String("grade_id", id), zap.String("modified_by", actorID))
	return existing, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, accountID, id string) error {
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		return gradeWriteError(err, "failed to delete grade")
	}
	return nil
}

// Bulk enters one assessment for several students of a class. Every entry yields a row
// result; a bad entry never aborts the others.
func (s *GradeService) Bulk(ctx context.Context, accountID, actorID string, req models.BulkGradeRequest) (*models.RowResults, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}
	if _, err := s.classes.FindByID(ctx, accountID, req.ClassID); err != nil {
		return nil, lookupError(err, "class")
	}
	if _, err := s.subjects.FindByID(ctx, accountID, req.SubjectID); err != nil {
		return nil, lookupError(err, "subject")
	}
	members, err := s.students.ListActiveByClass(ctx, accountID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	inClass := make(map[string]struct{}, len(members))
	for _, st := range members {
		inClass[st.ID] = struct{}{}
	}

	results := &models.RowResults{Rows: make([]models.RowResult, 0, len(req.Entries))}
	for i, entry := range req.Entries {
		row := models.RowResult{Row: i + 1}
		if entry.Score == nil {
			row.Status, row.Reason = models.RowSkipped, "no score"
			results.Add(row)
			continue
		}
		if _, ok := inClass[entry.StudentID]; !ok {
			row.Status, row.Reason = models.RowFailed, "student is not an active member of the class"
			results.Add(row)
			continue
		}
		grade, err := buildGrade(models.GradeRequest{
			StudentID:    entry.StudentID,
			SubjectID:    req.SubjectID,
			Score:        *entry.Score,
			MaxScore:     req.MaxScore,
			Kind:         req.Kind,
			EvaluatedOn:  req.EvaluatedOn,
			Semester:     req.Semester,
			AcademicYear: req.AcademicYear,
			Comment:      entry.Comment,
		})
		if err != nil {
			row.Status, row.Reason = models.RowFailed, appErrors.FromError(err).Message
			results.Add(row)
			continue
		}
		grade.AccountID = accountID
		grade.ModifiedBy = actorRef(actorID)
		if err := s.repo.Create(ctx, grade); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				row.Status, row.Reason = models.RowSkipped, "grade already recorded"
			} else {
				s.logger.Warn("bulk grade insert failed", zap.String("student_id", entry.StudentID), zap.Error(err))
				row.Status, row.Reason = models.RowFailed, "failed to store grade"
			}
			results.Add(row)
			continue
		}
		row.Status, row.ID = models.RowSuccess, grade.ID
		results.Add(row)
	}

	s.logger.Info("bulk grades entered",
		zap.String("class_id", req.ClassID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("success", results.Success),
		zap.Int("skipped", results.Skipped),
		zap.Int("failed", results.Failed),
	)
	return results, nil
}

// buildGrade checks the score range and date and fills in the default maximum.
func buildGrade(req models.GradeRequest) (*models.Grade, error) {
	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = models.DefaultMaxScore
	}
	if maxScore < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max_score must be positive")
	}
	if req.Score < 0 || req.Score > maxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", maxScore))
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown evaluation kind")
	}
	evaluatedOn, err := time.Parse(dateLayout, strings.TrimSpace(req.EvaluatedOn))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "evaluated_on must use YYYY-MM-DD")
	}
	return &models.Grade{
		StudentID:    req.StudentID,
		SubjectID:    req.SubjectID,
		Score:        req.Score,
		MaxScore:     maxScore,
		Kind:         req.Kind,
		EvaluatedOn:  evaluatedOn,
		Semester:     strings.TrimSpace(req.Semester),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Comment:      strings.TrimSpace(req.Comment),
	}, nil
}

func actorRef(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}

func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

func gradeWriteError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "a grade of this kind is already recorded for that date")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
