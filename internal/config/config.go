package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading gateway.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	// RedisURL enables the retrieval store; empty disables retrieval.
	RedisURL string

	// UploadDir is the base directory attachment references resolve under.
	UploadDir string

	AIProvider   string
	OpenAIAPIKey string
	OllamaHost   string
	ModelName    string

	MaxConcurrentRequests int
	MaxInputTokens        int
	SharedSecretKey       string

	ScoringTimeout     time.Duration
	WebhookTimeout     time.Duration
	WebhookMaxAttempts int

	SystemInstructionPath string
	RagChunkSize          int
	RagChunkOverlap       int
	RagResultLimit        int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("model.name", "qwen2.5:7b")
	v.SetDefault("max.concurrent_requests", 1)
	v.SetDefault("max.input_tokens", 3000)
	v.SetDefault("scoring_timeout", "5m")
	v.SetDefault("webhook_timeout", "30s")
	v.SetDefault("webhook_max_attempts", 3)
	v.SetDefault("rag.chunk_size", 800)
	v.SetDefault("rag.chunk_overlap", 100)
	v.SetDefault("rag.result_limit", 3)

	scoringTimeout, err := time.ParseDuration(v.GetString("scoring_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid scoring timeout: %w", err)
	}

	webhookTimeout, err := time.ParseDuration(v.GetString("webhook_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid webhook timeout: %w", err)
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		RedisURL:              v.GetString("redis.url"),
		UploadDir:             v.GetString("upload.dir"),
		AIProvider:            strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:          v.GetString("openai_api_key"),
		OllamaHost:            v.GetString("ollama.host"),
		ModelName:             v.GetString("model.name"),
		MaxConcurrentRequests: v.GetInt("max.concurrent_requests"),
		MaxInputTokens:        v.GetInt("max.input_tokens"),
		SharedSecretKey:       v.GetString("shared_secret_key"),
		ScoringTimeout:        scoringTimeout,
		WebhookTimeout:        webhookTimeout,
		WebhookMaxAttempts:    v.GetInt("webhook_max_attempts"),
		SystemInstructionPath: v.GetString("system_instruction_path"),
		RagChunkSize:          v.GetInt("rag.chunk_size"),
		RagChunkOverlap:       v.GetInt("rag.chunk_overlap"),
		RagResultLimit:        v.GetInt("rag.result_limit"),
	}

	if cfg.MaxConcurrentRequests < 1 {
		cfg.MaxConcurrentRequests = 1
	}

	if cfg.WebhookMaxAttempts < 1 {
		cfg.WebhookMaxAttempts = 3
	}

	switch cfg.AIProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided for the openai provider")
		}
	case "ollama":
		if cfg.OllamaHost == "" {
			return Config{}, fmt.Errorf("ollama host must be provided for the ollama provider")
		}
	default:
		return Config{}, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}

	return cfg, nil
}
