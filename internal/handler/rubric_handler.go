package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// RubricHandler exposes rubric flattening.
type RubricHandler struct {
	service service.RubricService
	logger  zerolog.Logger
}

// NewRubricHandler builds the rubric handler.
func NewRubricHandler(svc service.RubricService, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service: svc,
		logger:  logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Post("/flatten", h.flatten)
}

func (h *RubricHandler) flatten(c *fiber.Ctx) error {
	var payload dto.RubricFlattenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Flatten(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "rubric flattened", response)
}

func (h *RubricHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrInvalidRubricData):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
