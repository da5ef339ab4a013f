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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/skyward/fts-api/api/swagger"
	"github.com/skyward/fts-api/internal/handler"
	"github.com/skyward/fts-api/internal/middleware"
	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/internal/repository"
	"github.com/skyward/fts-api/internal/service"
	"github.com/skyward/fts-api/pkg/cache"
	"github.com/skyward/fts-api/pkg/config"
	"github.com/skyward/fts-api/pkg/database"
	"github.com/skyward/fts-api/pkg/logger"
	corsmiddleware "github.com/skyward/fts-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skyward/fts-api/pkg/middleware/requestid"
	"github.com/skyward/fts-api/pkg/storage"
)

// @title Flight Training Scheduling API
// @version 0.1.0
// @description Session booking engine for flight training courses
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	files, err := storage.NewLocalStorage(cfg.Logbook.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Logbook.SignedURLSecret, cfg.Logbook.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	logbookRepo := repository.NewLogbookRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	progressionSvc := service.NewProgressionService(gradeRepo, logr)
	prioritySvc := service.NewPriorityService(logr)
	dashboardSvc := service.NewDashboardService(studentRepo, policyRepo, progressionSvc, prioritySvc, cacheRepo, cfg.Dashboard, logr)
	notificationSvc := service.NewNotificationService(nil, cfg.Notifications, logr)
	availabilitySvc := service.NewAvailabilityService(slotRepo, studentRepo, policyRepo, bookingRepo, progressionSvc, db, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, slotRepo, studentRepo, db, notificationSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, logbookRepo, policyRepo, progressionSvc, dashboardSvc, cfg.Booking, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, dashboardSvc, cfg.Booking, validate, logr)
	policySvc := service.NewPolicyService(policyRepo, dashboardSvc, validate, logr)
	logbookSvc := service.NewLogbookService(logbookRepo, files, signer, cfg.Logbook, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()
	logbookSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, studentSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, metricsSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	policyHandler := handler.NewPolicyHandler(policySvc)
	logbookHandler := handler.NewLogbookHandler(logbookSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
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

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	students := protected.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.POST("", staff, studentHandler.Enroll)
		students.GET("/:id", studentHandler.Get)
		students.DELETE("/:id", staff, studentHandler.Deactivate)
		students.PUT("/:id/waiver", staff, studentHandler.SetWaiver)
		students.PUT("/:id/lessons", staff, studentHandler.SetLessonsComplete)
		students.GET("/:id/availability", availabilityHandler.View)
		students.POST("/:id/slots", availabilityHandler.PostSlot)
		students.DELETE("/:id/slots/:slotId", availabilityHandler.DeleteSlot)
		students.GET("/:id/grades", gradeHandler.StudentGrades)
		students.POST("/:id/certify", staff, gradeHandler.Certify)
	}

	slots := protected.Group("/slots")
	{
		slots.GET("", availabilityHandler.List)
	}

	bookings := protected.Group("/bookings", staff)
	{
		bookings.GET("", bookingHandler.List)
		bookings.POST("", bookingHandler.Create)
		bookings.GET("/conflict", bookingHandler.CheckConflict)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("/:id/confirm", bookingHandler.Confirm)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("/:courseId/exercises", gradeHandler.ListExercises)
		courses.GET("/:courseId/students/me", studentHandler.Self)
		courses.GET("/:courseId/policy", staff, policyHandler.Get)
		courses.PUT("/:courseId/policy", adminOnly, policyHandler.Update)
	}

	protected.POST("/grades", staff, gradeHandler.Record)
	protected.GET("/dashboard/courses/:courseId", staff, dashboardHandler.Instructor)

	logbook := protected.Group("/logbook")
	{
		logbook.GET("", logbookHandler.List)
		logbook.POST("/export", logbookHandler.Export)
	}
	// Download carries its own signed token, no JWT required.
	api.GET("/logbook/downloads/:token", logbookHandler.Download)

	protected.GET("/admin/metrics", adminOnly, metricsHandler.Snapshot)

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
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
