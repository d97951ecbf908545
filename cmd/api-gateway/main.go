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

	_ "github.com/noah-isme/coe-exam-api/api/swagger"
	"github.com/noah-isme/coe-exam-api/internal/handler"
	"github.com/noah-isme/coe-exam-api/internal/middleware"
	"github.com/noah-isme/coe-exam-api/internal/models"
	"github.com/noah-isme/coe-exam-api/internal/repository"
	"github.com/noah-isme/coe-exam-api/internal/service"
	"github.com/noah-isme/coe-exam-api/pkg/cache"
	"github.com/noah-isme/coe-exam-api/pkg/config"
	"github.com/noah-isme/coe-exam-api/pkg/database"
	"github.com/noah-isme/coe-exam-api/pkg/jobs"
	"github.com/noah-isme/coe-exam-api/pkg/logger"
	"github.com/noah-isme/coe-exam-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/coe-exam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coe-exam-api/pkg/middleware/requestid"
)

// @title COE Exam Scheduling API
// @version 1.0.0
// @description Exam scheduling coordination API for the Controller of Examinations office.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, timetable caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	departmentRepo := repository.NewDepartmentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	scheduleRepo := repository.NewExamScheduleRepository(db)
	alertRepo := repository.NewExamAlertRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	var mailer mail.Mailer
	switch cfg.Notifications.MailDriver {
	case "sendgrid":
		mailer = mail.NewSendgridMailer(cfg.Notifications.SendgridKey, cfg.Notifications.FromName, cfg.Notifications.FromAddress)
	default:
		mailer = mail.NewConsoleMailer(logr)
	}

	notificationSvc := service.NewNotificationService(staffRepo, mailer, metricsSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher *service.QueueNoticePublisher
	if cfg.Notifications.Enabled {
		queue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		publisher = service.NewQueueNoticePublisher(queue)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, validate, logr)
	alertSvc := service.NewExamAlertService(alertRepo, validate, logr)
	conflictSvc := service.NewConflictService(scheduleRepo, validate, logr)
	resolver := service.NewSubjectResolver(subjectRepo, logr)

	// publisher and cacheRepo may be nil; both are nil-safe and the
	// corresponding side effects are skipped.
	schedulingSvc := service.NewSchedulingService(scheduleRepo, subjectRepo, staffRepo, departmentRepo, resolver, publisher, cacheRepo, metricsSvc, validate, logr)
	timetableSvc := service.NewTimetableService(scheduleRepo, cacheRepo, cfg.Timetable.CacheTTL, metricsSvc, logr)
	circularSvc := service.NewCircularService(timetableSvc, nil, cfg.Circular, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	alertHandler := handler.NewExamAlertHandler(alertSvc)
	schedulingHandler := handler.NewSchedulingHandler(conflictSvc, schedulingSvc, alertSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, circularSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.PUT("/auth/password", authHandler.ChangePassword)

		authed.GET("/timetable", timetableHandler.List)
		authed.GET("/timetable/export", timetableHandler.Export)
		authed.GET("/timetable/circular", timetableHandler.Circular)

		authed.GET("/departments", departmentHandler.List)
		authed.GET("/departments/:id", departmentHandler.Get)
		authed.GET("/subjects", subjectHandler.List)
		authed.GET("/subjects/:id", subjectHandler.Get)
		authed.GET("/staff", staffHandler.List)
		authed.GET("/staff/:id", staffHandler.Get)
		authed.GET("/exam-alerts", alertHandler.List)
		authed.GET("/exam-alerts/active", alertHandler.Active)
		authed.GET("/exam-alerts/:id", alertHandler.Get)
		authed.GET("/exam-alerts/:id/available-dates", alertHandler.AvailableDates)

		authed.POST("/scheduling/check", schedulingHandler.Check)
		authed.POST("/scheduling/commit", schedulingHandler.Commit)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/departments", departmentHandler.Create)
		admin.PUT("/departments/:id", departmentHandler.Update)
		admin.DELETE("/departments/:id", departmentHandler.Delete)

		admin.POST("/subjects", subjectHandler.Create)
		admin.PUT("/subjects/:id", subjectHandler.Update)
		admin.DELETE("/subjects/:id", subjectHandler.Delete)

		admin.POST("/staff", staffHandler.Create)
		admin.PUT("/staff/:id", staffHandler.Update)
		admin.DELETE("/staff/:id", staffHandler.Delete)

		admin.POST("/exam-alerts", alertHandler.Create)
		admin.PUT("/exam-alerts/:id", alertHandler.Update)
		admin.DELETE("/exam-alerts/:id", alertHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
