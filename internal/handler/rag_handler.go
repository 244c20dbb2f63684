package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/extract"
	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// RagHandler manages the course reference material used to decorate
// grading prompts.
type RagHandler struct {
	validator *validator.Validate
	resolver  service.FileResolver
	retriever service.Retriever
	logger    zerolog.Logger
}

// NewRagHandler builds the retrieval endpoints handler.
func NewRagHandler(validate *validator.Validate, resolver service.FileResolver, retriever service.Retriever, logger zerolog.Logger) *RagHandler {
	return &RagHandler{
		validator: validate,
		resolver:  resolver,
		retriever: retriever,
		logger:    logger.With().Str("component", "rag_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *RagHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.ingest)
	router.Post("/search", h.search)
}

func (h *RagHandler) ingest(c *fiber.Ctx) error {
	var payload dto.RagIngestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	name, data, err := h.resolver.Resolve(c.Context(), payload.FilePath)
	if err != nil {
		return utils.SendError(c, fiber.StatusNotFound, "document could not be read")
	}

	text, err := extract.Text(name, data)
	if err != nil {
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	chunks, err := h.retriever.Ingest(c.Context(), payload.CourseID, name, text)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "document ingested", dto.RagIngestResponse{
		CourseID: payload.CourseID,
		Source:   name,
		Chunks:   chunks,
	})
}

func (h *RagHandler) search(c *fiber.Ctx) error {
	var payload dto.RagSearchRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	passages, err := h.retriever.Search(c.Context(), payload.Query, payload.CourseID, payload.Limit)
	if err != nil {
		return h.handleError(c, err)
	}

	if passages == nil {
		passages = []dto.RagPassage{}
	}

	return utils.SendSuccess(c, "passages retrieved", passages)
}

func (h *RagHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
