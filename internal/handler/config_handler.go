package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// ConfigHandler exposes the runtime-tunable system grading instruction.
type ConfigHandler struct {
	instructions service.InstructionService
	logger       zerolog.Logger
}

// NewConfigHandler builds the config handler.
func NewConfigHandler(instructions service.InstructionService, logger zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		instructions: instructions,
		logger:       logger.With().Str("component", "config_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ConfigHandler) Register(router fiber.Router) {
	router.Get("/instruction", h.getInstruction)
	router.Put("/instruction", h.setInstruction)
}

type instructionPayload struct {
	Instruction string `json:"instruction"`
}

func (h *ConfigHandler) getInstruction(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "instruction retrieved", instructionPayload{
		Instruction: h.instructions.Get(),
	})
}

func (h *ConfigHandler) setInstruction(c *fiber.Ctx) error {
	var payload instructionPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.instructions.Set(payload.Instruction); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	h.logger.Info().Msg("system instruction updated")

	return utils.SendSuccess(c, "instruction updated", instructionPayload{
		Instruction: h.instructions.Get(),
	})
}
