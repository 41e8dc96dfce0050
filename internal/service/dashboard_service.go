package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type dashboardRepository interface {
	Totals(ctx context.Context, accountID string) (*models.DashboardTotals, error)
	RecentStudents(ctx context.Context, accountID string, limit int) ([]models.StudentDetail, error)
	RecentGrades(ctx context.Context, accountID string, limit int) ([]models.RecentGrade, error)
}

// DashboardServiceConfig tunes the dashboard payload.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	RecentStudentLimit int
	RecentGradeLimit   int
}

// DashboardService composes the account landing page.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService. cache may be nil.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.RecentStudentLimit <= 0 {
		cfg.RecentStudentLimit = 5
	}
	if cfg.RecentGradeLimit <= 0 {
		cfg.RecentGradeLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cfg: cfg}
}

// Summary returns the dashboard of an account and whether it came from the cache.
// refresh skips the cached copy and rewrites it.
func (s *DashboardService) Summary(ctx context.Context, accountID string, refresh bool) (*models.DashboardSummary, bool, error) {
	cacheKey := fmt.Sprintf("dash:%s", accountID)
	if !refresh {
		var cached models.DashboardSummary
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed, recomputing", zap.String("account_id", accountID), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, accountID string) (*models.DashboardSummary, error) {
	totals, err := s.repo.Totals(ctx, accountID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count records")
	}
	students, err := s.repo.RecentStudents(ctx, accountID, s.cfg.RecentStudentLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent students")
	}
	grades, err := s.repo.RecentGrades(ctx, accountID, s.cfg.RecentGradeLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent grades")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	if grades == nil {
		grades = []models.RecentGrade{}
	}
	return &models.DashboardSummary{Totals: *totals, RecentStudents: students, RecentGrades: grades}, nil
}
