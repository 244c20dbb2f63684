package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/pkg/ai"
)

// GradingInput is the assembled, already-sanitized payload for one job.
type GradingInput struct {
	CourseID           string
	Question           string
	Submission         string
	Reference          string
	Rubric             string
	TeacherInstruction string
	MaxScore           float64
}

// GradingService runs one grading job against the scoring model and shapes
// the outcome. Errors never escape: every failure mode is converted into a
// terminal GradingResult so the caller always receives a report.
type GradingService interface {
	Grade(ctx context.Context, input GradingInput) dto.GradingResult
}

type gradingService struct {
	prompts PromptService
	tokens  TokenService
	scorer  ai.Scorer
	logger  zerolog.Logger
}

// NewGradingService constructs the grading pipeline.
func NewGradingService(prompts PromptService, tokens TokenService, scorer ai.Scorer, logger zerolog.Logger) GradingService {
	return &gradingService{
		prompts: prompts,
		tokens:  tokens,
		scorer:  scorer,
		logger:  logger.With().Str("component", "grading_service").Logger(),
	}
}

func (s *gradingService) Grade(ctx context.Context, input GradingInput) dto.GradingResult {
	prompt := s.prompts.BuildGradingPrompt(ctx, PromptInput{
		CourseID:           input.CourseID,
		Question:           input.Question,
		Submission:         input.Submission,
		Reference:          input.Reference,
		Rubric:             input.Rubric,
		TeacherInstruction: input.TeacherInstruction,
		MaxScore:           input.MaxScore,
	})

	if err := s.tokens.CheckLimit(prompt); err != nil {
		// A validation failure: the same prompt can never fit, so report it
		// descriptively with no score.
		s.logger.Warn().Err(err).Msg("prompt rejected by token budget")
		return errorResult("[Token Limit Error] "+err.Error(), s.scorer.Model())
	}

	output, err := s.scorer.Score(ctx, prompt)
	if err != nil {
		// The scorer exhausted its own retries. Full detail stays in the
		// server log; the caller gets a generic system failure.
		s.logger.Error().Err(err).Msg("scoring failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return errorResult("[API Connection Error] The scoring backend timed out.", s.scorer.Model())
		}
		return errorResult("[API Connection Error] The scoring backend did not respond.", s.scorer.Model())
	}

	score := clampScore(output.Score, input.MaxScore)
	feedback := output.Feedback
	if feedback == "" {
		feedback = "No feedback provided."
	}

	s.logger.Info().Float64("score", score).Float64("max_score", input.MaxScore).Msg("grading completed")

	return dto.GradingResult{
		Score:    &score,
		Feedback: &feedback,
		AIModel:  s.scorer.Model(),
	}
}

// clampScore bounds the model output to [0, maxScore]. Negative model output
// clamps to zero rather than failing the job; the model clearly produced a
// score, just an out-of-range one.
func clampScore(score, maxScore float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func errorResult(message, model string) dto.GradingResult {
	return dto.GradingResult{
		Error:   &message,
		AIModel: model,
	}
}
