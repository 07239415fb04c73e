package main

import (
	"context"
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

	_ "github.com/campusops/school-ops-api/api/swagger"
	"github.com/campusops/school-ops-api/internal/handler"
	"github.com/campusops/school-ops-api/internal/middleware"
	"github.com/campusops/school-ops-api/internal/models"
	"github.com/campusops/school-ops-api/internal/repository"
	"github.com/campusops/school-ops-api/internal/service"
	"github.com/campusops/school-ops-api/pkg/cache"
	"github.com/campusops/school-ops-api/pkg/config"
	"github.com/campusops/school-ops-api/pkg/database"
	"github.com/campusops/school-ops-api/pkg/jobs"
	"github.com/campusops/school-ops-api/pkg/logger"
	corsmiddleware "github.com/campusops/school-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/school-ops-api/pkg/middleware/requestid"
	"github.com/campusops/school-ops-api/pkg/storage"
)

// @title School Ops API
// @version 1.0.0
// @description Timetable and substitution scheduling engines for schools
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	configRepo := repository.NewSchedulingConfigRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	subRepo := repository.NewSubstitutionRepository(db)
	snapshotRepo := repository.NewMasterTimetableRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	constraintSvc := service.NewConstraintService(configRepo, subjectRepo, cacheRepo, logr, service.ConstraintServiceConfig{
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.ConfigTTL,
	})
	configSvc := service.NewConfigService(configRepo, constraintSvc, validate, logr)
	timetableSvc := service.NewTimetableService(constraintSvc, sectionRepo, teacherRepo, subjectRepo, timetableRepo, snapshotRepo, validate, logr, metrics)
	substitutionSvc := service.NewSubstitutionService(constraintSvc, leaveRepo, timetableRepo, teacherRepo, subjectRepo, sectionRepo, subRepo, validate, logr, metrics)
	leaveSvc := service.NewLeaveService(leaveRepo, teacherRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	configHandler := handler.NewConfigHandler(configSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	substitutionHandler := handler.NewSubstitutionHandler(substitutionSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)

	var reportHandler *handler.ReportHandler
	var reportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(timetableRepo, subRepo, sectionRepo, teacherRepo, subjectRepo, logr)

		var reportSvc *service.ReportService
		reportQueue = jobs.NewQueue("reports", func(ctx context.Context, job jobs.Job) error {
			return reportSvc.Process(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, reportQueue, exportSvc, store, signer, validate, logr)
		reportHandler = handler.NewReportHandler(reportSvc)

		// Expired report files are reaped in the background so the export
		// directory does not grow without bound.
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := store.CleanupOlderThan(cfg.Exports.Retention)
				if err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					logr.Info("expired export files removed", zap.Int("count", len(removed)))
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithRequestTiming())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/leaves", leaveHandler.Create)
	authed.GET("/leaves", leaveHandler.List)

	scheduling := authed.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler))
	scheduling.GET("/schools/:schoolId/config", configHandler.Get)
	scheduling.PUT("/schools/:schoolId/config", configHandler.Update)
	scheduling.POST("/timetable/generate", timetableHandler.Generate)
	scheduling.GET("/timetable/validate", timetableHandler.Validate)
	scheduling.POST("/timetable/freeze", timetableHandler.Freeze)
	scheduling.POST("/timetable/unfreeze", timetableHandler.Unfreeze)
	scheduling.GET("/timetable/freeze-status", timetableHandler.FreezeStatus)
	scheduling.POST("/substitutions/generate", substitutionHandler.Generate)
	scheduling.POST("/substitutions/preview", substitutionHandler.Preview)
	scheduling.POST("/leaves/:id/review", leaveHandler.Review)

	if reportHandler != nil {
		authed.POST("/reports", reportHandler.Create)
		authed.GET("/reports", reportHandler.List)
		authed.GET("/reports/:id", reportHandler.Status)
		api.GET("/reports/download", reportHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reportQueue != nil {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("shutdown incomplete", "error", err)
	}
	logr.Info("server stopped")
}
