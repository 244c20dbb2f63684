package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// WebhookEchoHandler receives and logs callback payloads. It exists so
// integrators (and local development) can point callback_url at the gateway
// itself and observe exactly what delivery produces.
type WebhookEchoHandler struct {
	logger zerolog.Logger
}

// NewWebhookEchoHandler builds the echo handler.
func NewWebhookEchoHandler(logger zerolog.Logger) *WebhookEchoHandler {
	return &WebhookEchoHandler{
		logger: logger.With().Str("component", "webhook_echo_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *WebhookEchoHandler) Register(router fiber.Router) {
	router.Post("", h.receive)
}

func (h *WebhookEchoHandler) receive(c *fiber.Ctx) error {
	var payload dto.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid webhook payload")
	}

	event := h.logger.Info().
		Str("request_id", payload.RequestID).
		Str("status", payload.Status).
		Str("timestamp", payload.Timestamp)
	if payload.SystemError != nil {
		event = event.Str("system_error", *payload.SystemError)
	}
	event.Msg("webhook received")

	return utils.SendSuccess(c, "webhook received", fiber.Map{
		"request_id": payload.RequestID,
	})
}
