package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-go-api/pkg/ai"
)

type stubScorer struct {
	output ai.ScoreOutput
	err    error
	prompt string
}

func (s *stubScorer) Score(_ context.Context, prompt string) (ai.ScoreOutput, error) {
	s.prompt = prompt
	return s.output, s.err
}

func (s *stubScorer) Model() string { return "stub-model" }

func newGradingFixture(t *testing.T, scorer ai.Scorer, tokenLimit int) GradingService {
	t.Helper()
	instructions := NewInstructionService("", zerolog.Nop())
	prompts := NewPromptService(instructions, nil, 3, zerolog.Nop())
	tokens := NewTokenServiceWithEncoder(runeEncoder, tokenLimit, zerolog.Nop())
	return NewGradingService(prompts, tokens, scorer, zerolog.Nop())
}

func TestGradeSuccess(t *testing.T) {
	scorer := &stubScorer{output: ai.ScoreOutput{Score: 8.5, Feedback: "Solid reasoning throughout."}}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{
		Question:   "Explain the water cycle.",
		Submission: "Evaporation, condensation, precipitation.",
		MaxScore:   10,
	})

	require.Nil(t, result.Error)
	require.NotNil(t, result.Score)
	require.Equal(t, 8.5, *result.Score)
	require.Equal(t, "Solid reasoning throughout.", *result.Feedback)
	require.Equal(t, "stub-model", result.AIModel)
	require.Contains(t, scorer.prompt, "<student_submission>")
}

func TestGradeClampsScoreAboveMax(t *testing.T) {
	scorer := &stubScorer{output: ai.ScoreOutput{Score: 12, Feedback: "Excellent."}}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{Question: "q", Submission: "a", MaxScore: 10})

	require.NotNil(t, result.Score)
	require.Equal(t, 10.0, *result.Score)
}

func TestGradeClampsNegativeScoreToZero(t *testing.T) {
	scorer := &stubScorer{output: ai.ScoreOutput{Score: -3, Feedback: "Off topic."}}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{Question: "q", Submission: "a", MaxScore: 10})

	require.Nil(t, result.Error)
	require.NotNil(t, result.Score)
	require.Equal(t, 0.0, *result.Score)
}

func TestGradeTokenLimitProducesDescriptiveErrorWithoutScore(t *testing.T) {
	scorer := &stubScorer{}
	svc := newGradingFixture(t, scorer, 50)

	result := svc.Grade(context.Background(), GradingInput{
		Question:   "q",
		Submission: strings.Repeat("very long submission ", 200),
		MaxScore:   10,
	})

	require.Nil(t, result.Score)
	require.NotNil(t, result.Error)
	require.Contains(t, *result.Error, "[Token Limit Error]")
	require.Contains(t, *result.Error, "token")
	require.Empty(t, scorer.prompt, "scorer must not be called for an oversized prompt")
}

func TestGradeScorerFailureMasksDetail(t *testing.T) {
	scorer := &stubScorer{err: errors.New("dial tcp 10.0.0.5:443: connection refused")}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{Question: "q", Submission: "a", MaxScore: 10})

	require.Nil(t, result.Score)
	require.NotNil(t, result.Error)
	require.Equal(t, "[API Connection Error] The scoring backend did not respond.", *result.Error)
	require.Equal(t, "stub-model", result.AIModel)
}

func TestGradeScorerTimeoutReportedAsTimeout(t *testing.T) {
	scorer := &stubScorer{err: context.DeadlineExceeded}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{Question: "q", Submission: "a", MaxScore: 10})

	require.NotNil(t, result.Error)
	require.Equal(t, "[API Connection Error] The scoring backend timed out.", *result.Error)
}

func TestGradeDefaultsEmptyFeedback(t *testing.T) {
	scorer := &stubScorer{output: ai.ScoreOutput{Score: 5}}
	svc := newGradingFixture(t, scorer, 0)

	result := svc.Grade(context.Background(), GradingInput{Question: "q", Submission: "a", MaxScore: 10})

	require.NotNil(t, result.Feedback)
	require.Equal(t, "No feedback provided.", *result.Feedback)
}
