package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of AI scoring requests",
	}, []string{"model"})

	scoringFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "scoring_failures_total",
		Help:      "Number of AI scoring failures",
	}, []string{"model"})

	scoringRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grader",
		Subsystem: "ai",
		Name:      "scoring_retries_total",
		Help:      "Number of retried AI scoring transport failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI scorer.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxAttempts int
	Logger      zerolog.Logger

	// Sleep is called between transport retries. Tests replace it to avoid
	// real waiting.
	Sleep func(time.Duration)
}

// OpenAIScorer implements Scorer and Completer against a chat-completion API.
type OpenAIScorer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScorer builds a scorer using the provided configuration.
func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIScorer{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/grader-go-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_scorer").Logger(),
	}, nil
}

// Model reports the configured model name.
func (s *OpenAIScorer) Model() string {
	return s.cfg.Model
}

// Ping verifies the backend answers its model listing endpoint. Used by the
// health check; it never retries.
func (s *OpenAIScorer) Ping(ctx context.Context) error {
	_, err := s.client.ListModels(ctx)
	return err
}

// Score sends the grading prompt and parses the JSON response. Transport
// failures are retried with exponential backoff up to MaxAttempts; a
// response that parses incorrectly fails immediately since retrying the same
// prompt cannot fix it.
func (s *OpenAIScorer) Score(parent context.Context, prompt string) (ScoreOutput, error) {
	ctx, span := s.tracer.Start(parent, "openai.score", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
	))
	defer span.End()

	content, usage, err := s.complete(ctx, prompt, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreOutput{}, err
	}

	result, err := parseScoreResponse(content)
	if err != nil {
		scoringFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoreOutput{}, err
	}

	result.Raw = map[string]interface{}{"usage": usage}

	return result, nil
}

// Complete returns the raw text completion for a prompt, without JSON
// response formatting.
func (s *OpenAIScorer) Complete(parent context.Context, prompt string) (string, error) {
	ctx, span := s.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
	))
	defer span.End()

	content, _, err := s.complete(ctx, prompt, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return content, nil
}

func (s *OpenAIScorer) complete(ctx context.Context, prompt string, jsonFormat bool) (string, openai.Usage, error) {
	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonFormat {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		resp, err := s.client.CreateChatCompletion(ctx, request)
		scoringDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())

		if err == nil {
			if len(resp.Choices) == 0 {
				scoringFailures.WithLabelValues(s.cfg.Model).Inc()
				return "", openai.Usage{}, fmt.Errorf("no choices returned from model")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), resp.Usage, nil
		}

		lastErr = err
		scoringFailures.WithLabelValues(s.cfg.Model).Inc()

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}

		if attempt < s.cfg.MaxAttempts {
			scoringRetries.WithLabelValues(s.cfg.Model).Inc()
			s.logger.Warn().Err(err).Int("attempt", attempt).Msg("scoring call failed, retrying")
			s.cfg.Sleep(backoffDelay(attempt))
		}
	}

	return "", openai.Usage{}, fmt.Errorf("chat completion: %w", lastErr)
}

// backoffDelay grows 1s, 2s, 4s... capped at 10s.
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<(attempt-1)) * time.Second
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	return delay
}

func parseScoreResponse(content string) (ScoreOutput, error) {
	type payload struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return ScoreOutput{}, fmt.Errorf("parse scoring json: %w", err)
	}

	return ScoreOutput{
		Score:    data.Score,
		Feedback: data.Feedback,
	}, nil
}
