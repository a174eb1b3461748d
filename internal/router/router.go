package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aula-lms/aula-go-api/internal/config"
	"github.com/aula-lms/aula-go-api/internal/handler"
	"github.com/aula-lms/aula-go-api/internal/middleware"
	"github.com/aula-lms/aula-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuizHandler         *handler.QuizHandler
	GradeHandler        *handler.GradeHandler
	AnalyticsHandler    *handler.AnalyticsHandler
	ActivityHandler     *handler.ActivityHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.QuizHandler != nil {
		quizzes := v2.Group("/quizzes")
		deps.QuizHandler.Register(quizzes)

		teacherQuizzes := v2.Group("/quizzes", middleware.RequireRole("teacher", "admin"))
		deps.QuizHandler.RegisterTeacher(teacherQuizzes)
	}

	if deps.GradeHandler != nil {
		units := v2.Group("/units")
		grades := v2.Group("/grades")
		deps.GradeHandler.RegisterStudent(units, grades)

		teacherUnits := v2.Group("/units", middleware.RequireRole("teacher", "admin"))
		deps.GradeHandler.RegisterTeacher(teacherUnits)
	}

	if deps.AnalyticsHandler != nil {
		analytics := v2.Group("/analytics")
		deps.AnalyticsHandler.Register(analytics)
	}

	if deps.ActivityHandler != nil {
		// Heartbeats arrive once per study minute; the cap leaves
		// headroom for bursts after a reconnect.
		activity := v2.Group("/activity", middleware.RateLimit("activity", 120, time.Minute))
		deps.ActivityHandler.Register(activity)
	}

	if deps.NotificationHandler != nil {
		notifications := v2.Group("/notifications")
		deps.NotificationHandler.Register(notifications)
	}
}
