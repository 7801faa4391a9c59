package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/repository"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/cache"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/database"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

// @title LMS API
// @version 1.0.0
// @description Learning management backend: courses, lectures, quizzes, enrollment and attendance
// @BasePath /api
// @schemes http https
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	var cacheStore *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheStore = repository.NewCacheRepository(client)
			cacheRepo = cacheStore
		}
	}

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessExpiration,
		RefreshTTL:    cfg.JWT.RefreshExpiration,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		logr.Fatal("invalid token configuration", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	exporter := export.NewExporter()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewQuizAttemptRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.CatalogTTL, logr, cacheRepo != nil)
	authSvc := service.NewAuthService(userRepo, tokens, validate, metricsSvc, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, cacheSvc, validate, logr)
	lectureSvc := service.NewLectureService(lectureRepo, courseRepo, enrollmentRepo, validate, logr)
	quizSvc := service.NewQuizService(db, quizRepo, courseRepo, lectureRepo, enrollmentRepo, userRepo, validate, logr)
	attemptSvc := service.NewQuizAttemptService(service.QuizAttemptDeps{
		Tx:          db,
		Quizzes:     quizRepo,
		Courses:     courseRepo,
		Enrollments: enrollmentRepo,
		Attempts:    attemptRepo,
		Audit:       userRepo,
		Exporter:    exporter,
		Metrics:     metricsSvc,
	}, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(db, enrollmentRepo, courseRepo, lectureRepo, userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, lectureRepo, courseRepo, enrollmentRepo, exporter, validate, logr)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if cacheStore != nil {
		checks["redis"] = cacheStore.Ping
	}

	var limiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, metricsSvc).Handler()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	registerRoutes(r, routeConfig{
		Prefix:      cfg.APIPrefix,
		ServeDocs:   cfg.Env != config.EnvProduction,
		Tokens:      tokens,
		RateLimit:   limiter,
		Auth:        handler.NewAuthHandler(authSvc, handler.CookieOptions{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure}),
		Users:       handler.NewUserHandler(userSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Lectures:    handler.NewLectureHandler(lectureSvc),
		Quizzes:     handler.NewQuizHandler(quizSvc),
		Attempts:    handler.NewQuizAttemptHandler(attemptSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Ops:         handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
