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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/uniserve/registrar-api/api/swagger"
	"github.com/uniserve/registrar-api/internal/handler"
	"github.com/uniserve/registrar-api/internal/middleware"
	"github.com/uniserve/registrar-api/internal/repository"
	"github.com/uniserve/registrar-api/internal/service"
	"github.com/uniserve/registrar-api/pkg/cache"
	"github.com/uniserve/registrar-api/pkg/config"
	"github.com/uniserve/registrar-api/pkg/database"
	"github.com/uniserve/registrar-api/pkg/export"
	"github.com/uniserve/registrar-api/pkg/jobs"
	"github.com/uniserve/registrar-api/pkg/logger"
	corsmiddleware "github.com/uniserve/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniserve/registrar-api/pkg/middleware/requestid"
	"github.com/uniserve/registrar-api/pkg/storage"
)

// @title Registrar API
// @version 1.0.0
// @description University registration service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheEnabled := true
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability cache disabled", "error", err)
		cacheEnabled = false
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Academic.AvailabilityCacheTTL, logr, cacheEnabled)

	transcriptStore, err := storage.NewLocalStorage(cfg.Transcripts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("transcript storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Transcripts.SignedURLSecret, cfg.Transcripts.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)

	var notificationSvc *service.NotificationService
	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		return notificationSvc.Deliver(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notificationSvc = service.NewNotificationService(notificationRepo, queue, logr)
	queue.Start(ctx)
	defer queue.Stop()

	authSvc := service.NewAuthService(userRepo, auditRepo, nil, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        "registrar-api",
	})
	studentSvc := service.NewStudentService(studentRepo, userRepo, nil, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, departmentRepo, enrollmentRepo, cfg.Academic.PassingGrade, nil, logr)
	sectionSvc := service.NewSectionService(sectionRepo, courseRepo, userRepo, cfg.Academic.DefaultWaitlistCapacity, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, studentRepo,
		notificationSvc, cacheSvc, auditRepo, metricsSvc, service.EnrollmentPolicy{
			MaxCreditsPerTerm:    cfg.Academic.MaxCreditsPerTerm,
			AvailabilityCacheTTL: cfg.Academic.AvailabilityCacheTTL,
		}, nil, logr)
	gradeSvc := service.NewGradeService(enrollmentRepo, studentRepo, notificationSvc,
		auditRepo, metricsSvc, cfg.Academic.PassingGrade, nil, logr)
	transcriptSvc := service.NewTranscriptService(transcriptRepo, studentRepo,
		export.NewPDFExporter(), transcriptStore, signer, notificationSvc, auditRepo, nil, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, sectionRepo,
		enrollmentRepo, studentRepo, notificationSvc, nil, logr)
	exportSvc := service.NewExportService(enrollmentRepo, sectionRepo,
		export.NewCSVExporter(), export.NewPDFExporter(), logr)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Departments:   handler.NewDepartmentHandler(departmentSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Sections:      handler.NewSectionHandler(sectionSvc, enrollmentSvc, exportSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Students:      handler.NewStudentHandler(studentSvc, enrollmentSvc, gradeSvc, transcriptSvc),
		Transcripts:   handler.NewTranscriptHandler(transcriptSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Audits:        handler.NewAuditHandler(auditRepo),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, auditRepo)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
