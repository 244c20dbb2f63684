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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/config"
	"github.com/noah-isme/grader-go-api/internal/database"
	"github.com/noah-isme/grader-go-api/internal/handler"
	"github.com/noah-isme/grader-go-api/internal/middleware"
	"github.com/noah-isme/grader-go-api/internal/router"
	"github.com/noah-isme/grader-go-api/internal/security"
	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/task"
	"github.com/noah-isme/grader-go-api/internal/webhook"
	"github.com/noah-isme/grader-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	scorer, err := buildScorer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create scorer: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	sanitizer := security.NewSanitizer(logger)
	resolver := service.NewLocalFileResolver(cfg.UploadDir)
	aggregator := service.NewContentAggregator(resolver, sanitizer, logger)
	instructions := service.NewInstructionService(cfg.SystemInstructionPath, logger)
	tokens := service.NewTokenService(cfg.MaxInputTokens, logger)

	var retriever service.Retriever
	if redisClient != nil {
		retriever = service.NewRetrievalService(redisClient, cfg.RagChunkSize, cfg.RagChunkOverlap, logger)
	}

	prompts := service.NewPromptService(instructions, retriever, cfg.RagResultLimit, logger)
	grading := service.NewGradingService(prompts, tokens, scorer, logger)

	rubrics, err := service.NewRubricService(validate, prompts, scorer, logger)
	if err != nil {
		log.Fatalf("failed to create rubric service: %v", err)
	}

	sender := webhook.NewSender(webhook.Config{
		Secret:      cfg.SharedSecretKey,
		MaxAttempts: cfg.WebhookMaxAttempts,
		Timeout:     cfg.WebhookTimeout,
		Logger:      logger,
	})

	runner := task.NewRunner(int64(cfg.MaxConcurrentRequests), sender, cfg.ScoringTimeout, logger)

	gradingHandler := handler.NewGradingHandler(validate, sanitizer, aggregator, grading, runner, logger)
	rubricHandler := handler.NewRubricHandler(rubrics, logger)
	configHandler := handler.NewConfigHandler(instructions, logger)
	webhookEchoHandler := handler.NewWebhookEchoHandler(logger)

	var ragHandler *handler.RagHandler
	if retriever != nil {
		ragHandler = handler.NewRagHandler(validate, resolver, retriever, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:     gradingHandler,
		RagHandler:         ragHandler,
		RubricHandler:      rubricHandler,
		ConfigHandler:      configHandler,
		WebhookEchoHandler: webhookEchoHandler,
		Scorer:             scorer,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, runner)
}

func buildScorer(cfg config.Config, logger zerolog.Logger) (*ai.OpenAIScorer, error) {
	if cfg.AIProvider == "openai" {
		return ai.NewOpenAIScorer(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.ModelName,
			Logger: logger,
		})
	}

	return ai.NewOllamaScorer(ai.OllamaConfig{
		Host:   cfg.OllamaHost,
		Model:  cfg.ModelName,
		Logger: logger,
	})
}

func waitForShutdown(app *fiber.App, runner *task.Runner) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// In-flight grading tasks finish and deliver before exit; queued work
	// is lost on a hard kill (no persistence).
	runner.Wait()

	log.Println("server stopped")
}
