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

	_ "github.com/eesa/eesa-api/api/swagger"
	"github.com/eesa/eesa-api/internal/handler"
	"github.com/eesa/eesa-api/internal/middleware"
	"github.com/eesa/eesa-api/internal/repository"
	"github.com/eesa/eesa-api/internal/service"
	"github.com/eesa/eesa-api/pkg/cache"
	"github.com/eesa/eesa-api/pkg/config"
	"github.com/eesa/eesa-api/pkg/database"
	"github.com/eesa/eesa-api/pkg/jobs"
	"github.com/eesa/eesa-api/pkg/logger"
	"github.com/eesa/eesa-api/pkg/mailer"
	corsmiddleware "github.com/eesa/eesa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eesa/eesa-api/pkg/middleware/requestid"
	"github.com/eesa/eesa-api/pkg/storage"
)

// @title EESA API
// @version 1.0.0
// @description Backend for the Electrical Engineering Students Association portal
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	store, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	grantRepo := repository.NewFacultySubjectRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	markRepo := repository.NewMarkRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	eventRepo := repository.NewEventRepository(db)

	metricsSvc := service.NewMetricsService()

	smtpMailer := mailer.New(cfg.SMTP, logr)
	mailQueue := jobs.NewQueue("mailer", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(service.WelcomeMailPayload)
		if !ok {
			logr.Warn("dropping mail job with unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		err := smtpMailer.Send(payload.To, "Welcome to EESA", mailer.WelcomeBody(payload.FullName, payload.Username, payload.Password))
		metricsSvc.ObserveMailSend(err == nil)
		return err
	}, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	authSvc := service.NewAuthService(userRepo, studentRepo, facultyRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "eesa-api",
	})
	userSvc := service.NewUserService(userRepo, studentRepo, mailQueue, validate, logr)
	facultySvc := service.NewFacultyService(facultyRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	grantSvc := service.NewGrantService(grantRepo, facultyRepo, subjectRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, grantSvc, studentRepo, cacheRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, grantSvc, studentRepo, subjectRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, grantSvc, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, validate, logr)
	noteSvc := service.NewNoteService(noteRepo, cacheRepo, cfg.Library.CacheTTL, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	uploadSvc := service.NewUploadService(store, signer, cfg.Storage.MaxFileSize, logr)

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

	router := &handler.Router{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Faculty:     handler.NewFacultyHandler(facultySvc),
		Subjects:    handler.NewSubjectHandler(subjectSvc),
		Grants:      handler.NewGrantHandler(grantSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Marks:       handler.NewMarkHandler(markSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Materials:   handler.NewMaterialHandler(materialSvc),
		Notes:       handler.NewNoteHandler(noteSvc),
		Events:      handler.NewEventHandler(eventSvc),
		Uploads:     handler.NewUploadHandler(uploadSvc),
		AuthService: authSvc,
		UserRepo:    userRepo,
	}
	router.Register(r.Group(cfg.APIPrefix))

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

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
