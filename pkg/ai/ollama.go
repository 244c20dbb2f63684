package ai

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// OllamaConfig defines configuration for a self-hosted Ollama scorer.
type OllamaConfig struct {
	Host        string
	Model       string
	Temperature float32
	MaxAttempts int
	Logger      zerolog.Logger
}

// NewOllamaScorer targets Ollama's OpenAI-compatible endpoint so the same
// chat-completion client serves both providers.
func NewOllamaScorer(cfg OllamaConfig) (*OpenAIScorer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ollama host is required")
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	return NewOpenAIScorer(OpenAIConfig{
		// Ollama ignores the key but the client requires one.
		APIKey:      "ollama",
		BaseURL:     strings.TrimRight(cfg.Host, "/") + "/v1",
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      cfg.Logger,
	})
}
