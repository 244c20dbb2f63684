package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/grader-go-api/internal/config"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// ScorerProbe reports whether the scoring backend is reachable.
type ScorerProbe interface {
	Ping(ctx context.Context) error
	Model() string
}

const scorerProbeTimeout = 2 * time.Second

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	AIModel     string    `json:"ai_model,omitempty"`
	AIStatus    string    `json:"ai_status,omitempty"`
}

// HealthCheck returns a handler that reports application health plus the
// reachability of the configured scoring backend.
func HealthCheck(cfg config.Config, scorer ScorerProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if scorer != nil {
			payload.AIModel = scorer.Model()

			ctx, cancel := context.WithTimeout(c.Context(), scorerProbeTimeout)
			defer cancel()

			if err := scorer.Ping(ctx); err != nil {
				payload.AIStatus = "unreachable"
			} else {
				payload.AIStatus = "ok"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
