package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/grader-go-api/internal/config"
	"github.com/noah-isme/grader-go-api/internal/handler"
	"github.com/noah-isme/grader-go-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler     *handler.GradingHandler
	RagHandler         *handler.RagHandler
	RubricHandler      *handler.RubricHandler
	ConfigHandler      *handler.ConfigHandler
	WebhookEchoHandler *handler.WebhookEchoHandler
	Scorer             handler.ScorerProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Scorer))

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", middleware.RateLimit("grading", 30, time.Minute))
		deps.GradingHandler.Register(grading)
	}

	if deps.RagHandler != nil {
		deps.RagHandler.Register(api.Group("/rag"))
	}

	if deps.RubricHandler != nil {
		deps.RubricHandler.Register(api.Group("/rubric"))
	}

	if deps.ConfigHandler != nil {
		deps.ConfigHandler.Register(api.Group("/config"))
	}

	if deps.WebhookEchoHandler != nil {
		deps.WebhookEchoHandler.Register(api.Group("/webhook-test"))
	}
}
