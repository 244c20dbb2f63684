package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/middleware"
	"github.com/noah-isme/grader-go-api/internal/security"
	"github.com/noah-isme/grader-go-api/internal/service"
	"github.com/noah-isme/grader-go-api/internal/task"
	"github.com/noah-isme/grader-go-api/internal/utils"
)

// defaultMaxScore is the common 10-point scale applied when a request omits
// max_score.
const defaultMaxScore = 10

// TaskSubmitter admits a grading task for asynchronous execution.
type TaskSubmitter interface {
	Submit(task task.Task)
}

// GradingHandler accepts grading bundles and queues them for asynchronous
// scoring and webhook delivery.
type GradingHandler struct {
	validator  *validator.Validate
	sanitizer  *security.Sanitizer
	aggregator service.ContentAggregator
	grading    service.GradingService
	runner     TaskSubmitter
	logger     zerolog.Logger
}

// NewGradingHandler builds the grading intake handler.
func NewGradingHandler(validate *validator.Validate, sanitizer *security.Sanitizer, aggregator service.ContentAggregator, grading service.GradingService, runner TaskSubmitter, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		validator:  validate,
		sanitizer:  sanitizer,
		aggregator: aggregator,
		grading:    grading,
		runner:     runner,
		logger:     logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/async-batch", h.gradeAsync)
}

func (h *GradingHandler) gradeAsync(c *fiber.Ctx) error {
	var payload dto.GradingRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if payload.MaxScore == 0 {
		payload.MaxScore = defaultMaxScore
	}

	if err := h.validator.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		}
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request")
	}

	requestID := strings.TrimSpace(payload.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	correlationID := middleware.GetCorrelationID(c)
	logger := h.logger.With().Str("request_id", requestID).Str("correlation_id", correlationID).Logger()
	logger.Info().Msg("grading request received")

	ctx := c.Context()

	// The primary submission text is inspected first. A violation condemns
	// the submission to the fixed marker and skips its file attachments:
	// extracting them would waste work and reopen the injection vector.
	verdict := h.sanitizer.ValidateAndSanitize(payload.StudentSubmissionText)

	var submissionFiles string
	if verdict.IsViolation {
		logger.Warn().Msg("submission text blocked, skipping submission attachments")
	} else {
		submissionFiles = h.aggregator.Aggregate(ctx, payload.StudentSubmissionFiles)
	}

	// Assignment and reference attachments are trusted teacher inputs and
	// are aggregated unconditionally.
	assignmentFiles := h.aggregator.Aggregate(ctx, payload.AssignmentAttachments)

	var referenceFiles string
	if payload.ReferenceAnswerFile != "" {
		referenceFiles = h.aggregator.Aggregate(ctx, []string{payload.ReferenceAnswerFile})
	}

	if strings.TrimSpace(verdict.SafeText) == "" && strings.TrimSpace(submissionFiles) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "submission has no gradable content")
	}

	input := service.GradingInput{
		CourseID:           payload.CourseID,
		Question:           payload.AssignmentContent + assignmentFiles,
		Submission:         verdict.SafeText + submissionFiles,
		Reference:          payload.ReferenceAnswerText + referenceFiles,
		Rubric:             payload.GradingCriteria,
		TeacherInstruction: payload.TeacherInstruction,
		MaxScore:           payload.MaxScore,
	}

	h.runner.Submit(task.Task{
		RequestID:   requestID,
		CallbackURL: payload.CallbackURL,
		EnqueuedAt:  time.Now().UTC(),
		Process: func(ctx context.Context) dto.GradingResult {
			// The request's correlation id outlives the request: scoring
			// spans and logs stay joinable to the intake log line.
			return h.grading.Grade(middleware.ContextWithCorrelation(ctx, correlationID), input)
		},
	})

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "queued", dto.GradingQueuedResponse{
		Status:    "queued",
		Message:   "Request accepted for grading.",
		RequestID: requestID,
	})
}
