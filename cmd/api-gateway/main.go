package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-bulletin-api/api/swagger"
	"github.com/noah-isme/sma-bulletin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-bulletin-api/internal/middleware"
	"github.com/noah-isme/sma-bulletin-api/internal/repository"
	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/migrations"
	"github.com/noah-isme/sma-bulletin-api/pkg/cache"
	"github.com/noah-isme/sma-bulletin-api/pkg/config"
	"github.com/noah-isme/sma-bulletin-api/pkg/database"
	"github.com/noah-isme/sma-bulletin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-bulletin-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-bulletin-api/pkg/storage"
)

// @title SMA Bulletin API
// @version 1.0.0
// @description Multi-tenant school records and report card generation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, migrations.Files)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		if len(applied) > 0 {
			logr.Info("migrations applied", zap.Strings("versions", applied))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()

	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	bulletinRepo := repository.NewBulletinRepository(db)
	resetCodes := repository.NewResetCodeRepository(redisClient)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	authSvc := service.NewAuthService(userRepo, accountRepo, resetCodes, validate, logr, service.AuthConfig{
		AccessTokenSecret:    cfg.JWT.Secret,
		AccessTokenExpiry:    cfg.JWT.Expiration,
		Issuer:               cfg.JWT.Issuer,
		ResetCodeTTL:         cfg.Auth.ResetCodeTTL,
		ResetCodeMaxAttempts: cfg.Auth.ResetCodeMaxAttempts,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, gradeRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, subjectRepo, classRepo, validate, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DashboardTTL, logr, cfg.Cache.Enabled)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Cache.DashboardTTL,
	})
	importSvc := service.NewImportService(classRepo, studentRepo, subjectRepo, metricsSvc, logr, cfg.Imports.MaxFileSizeBytes)

	bulletinDeps := service.BulletinServiceDeps{
		Classes:   classRepo,
		Students:  studentRepo,
		Grades:    gradeRepo,
		Bulletins: bulletinRepo,
		Metrics:   metricsSvc,
	}

	var archiveOpener handler.ArchiveOpener
	if cfg.Bulletins.ArchiveEnabled {
		store, err := storage.NewLocalStorage(cfg.Bulletins.ArchiveDir)
		if err != nil {
			logr.Fatal("failed to prepare archive storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Bulletins.ArchiveSecret, cfg.Bulletins.ArchiveTTL)
		archiveSvc := service.NewArchiveService(store, signer, logr, service.ArchiveConfig{
			URLPrefix: cfg.APIPrefix + "/bulletins/archive/",
			TTL:       cfg.Bulletins.ArchiveTTL,
		})
		bulletinDeps.Archive = archiveSvc
		archiveOpener = archiveSvc

		if err := archiveSvc.Cleanup(); err != nil {
			logr.Warn("archive cleanup failed", zap.Error(err))
		}
	}

	bulletinSvc := service.NewBulletinService(bulletinDeps, validate, logr, service.BulletinConfig{
		SchoolName:   cfg.Bulletins.SchoolName,
		FilterByYear: cfg.Bulletins.FilterByYear,
	})

	h := handlers{
		auth:      handler.NewAuthHandler(authSvc),
		users:     handler.NewUserHandler(userSvc),
		classes:   handler.NewClassHandler(classSvc),
		students:  handler.NewStudentHandler(studentSvc),
		subjects:  handler.NewSubjectHandler(subjectSvc),
		grades:    handler.NewGradeHandler(gradeSvc),
		imports:   handler.NewImportHandler(importSvc, cfg.Imports.MaxFileSizeBytes),
		bulletins: handler.NewBulletinHandler(bulletinSvc, archiveOpener),
		dashboard: handler.NewDashboardHandler(dashboardSvc),
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return cache.Ping(ctx, redisClient)
		},
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), h, internalmiddleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
