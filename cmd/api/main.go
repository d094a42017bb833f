package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/evalio/evalio-api/api/swagger"
	"github.com/evalio/evalio-api/internal/handler"
	"github.com/evalio/evalio-api/internal/repository"
	"github.com/evalio/evalio-api/internal/router"
	"github.com/evalio/evalio-api/internal/service"
	"github.com/evalio/evalio-api/pkg/cache"
	"github.com/evalio/evalio-api/pkg/config"
	"github.com/evalio/evalio-api/pkg/database"
	"github.com/evalio/evalio-api/pkg/logger"
)

// @title Evalio API
// @version 1.0.0
// @description Anonymous teacher evaluation platform for schools
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db, cfg.Database.MigrationsDir); err != nil {
		logr.Fatal("database migration failed", zap.Error(err))
	}
	if version, err := database.MigrationVersion(ctx, db); err == nil {
		logr.Info("database ready", zap.Int64("migration_version", version))
	}

	// Redis is optional: stats are recomputed per request when it is down.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	codeRepo := repository.NewAccessCodeRepository(db)
	responseRepo := repository.NewResponseRepository(db)

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, validate, logr)
	statsSvc := service.NewStatsService(evaluationRepo, cacheSvc, cfg.Stats.CacheTTL, logr)
	codeSvc := service.NewAccessCodeService(codeRepo, evaluationRepo, metrics, validate, logr)
	responseSvc := service.NewResponseService(responseRepo, codeRepo, evaluationRepo, statsSvc, metrics, validate, logr)
	exportSvc := service.NewExportService(evaluationSvc, statsSvc, logr)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Schools:     handler.NewSchoolHandler(schoolSvc),
		Classes:     handler.NewClassHandler(classSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc),
		Subjects:    handler.NewSubjectHandler(subjectSvc),
		Evaluations: handler.NewEvaluationHandler(evaluationSvc, statsSvc, exportSvc),
		Codes:       handler.NewAccessCodeHandler(codeSvc),
		Submissions: handler.NewSubmissionHandler(codeSvc, responseSvc),
		Metrics:     handler.NewMetricsHandler(metrics),
	}

	engine := router.Setup(cfg, handlers, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logr.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
