package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aula-lms/aula-go-api/internal/config"
	"github.com/aula-lms/aula-go-api/internal/database"
	"github.com/aula-lms/aula-go-api/internal/handler"
	"github.com/aula-lms/aula-go-api/internal/middleware"
	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/repository"
	"github.com/aula-lms/aula-go-api/internal/router"
	"github.com/aula-lms/aula-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Unit{},
		&models.Quiz{},
		&models.QuizAssignment{},
		&models.QuizAttempt{},
		&models.QuizResult{},
		&models.TaskGrade{},
		&models.GradeOverride{},
		&models.ActivityEvent{},
		&models.UnitProgress{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, running without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		natsConn, err = nats.Connect(cfg.NATSUrl)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, running without broker")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	resultRepo := repository.NewResultRepository(db)
	taskGradeRepo := repository.NewTaskGradeRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	gradeService := service.NewGradeService(resultRepo, taskGradeRepo, overrideRepo, progressRepo, unitRepo, studentRepo, cfg.Grading, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, "aula", natsConn, validate, logger)
	quizService := service.NewQuizService(quizRepo, attemptRepo, resultRepo, activityRepo, gradeService, notificationService, validate, logger)
	analyticsService := service.NewAnalyticsService(activityRepo, progressRepo, unitRepo, redisClient, cfg.AnalyticsCacheTTL, logger)
	activityService := service.NewActivityService(activityRepo, progressRepo, unitRepo, validate, logger)

	quizHandler := handler.NewQuizHandler(quizService, logger)
	gradeHandler := handler.NewGradeHandler(gradeService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		QuizHandler:         quizHandler,
		GradeHandler:        gradeHandler,
		AnalyticsHandler:    analyticsHandler,
		ActivityHandler:     activityHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
