// Package webhook delivers grading results to caller-supplied callback URLs
// with bounded retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grader-go-api/internal/dto"
)

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "grader",
	Subsystem: "webhook",
	Name:      "deliveries_total",
	Help:      "Webhook delivery outcomes",
}, []string{"result"})

// Config customises the sender.
type Config struct {
	// Secret, when set, is attached as a bearer Authorization header.
	Secret      string
	MaxAttempts int
	Timeout     time.Duration

	// BackoffUnit scales the exponential wait between attempts. Production
	// uses the default of one second; tests shrink it.
	BackoffUnit time.Duration

	// Sleep is called for the backoff wait. Tests replace it to fast-forward.
	Sleep func(time.Duration)

	Logger zerolog.Logger
}

// Sender posts webhook payloads with retry. Delivery is fire-and-forget
// from the orchestrator's perspective: the outcome is logged, and the
// returned error only serves tests and metrics.
type Sender struct {
	client      *http.Client
	secret      string
	maxAttempts int
	backoffUnit time.Duration
	sleep       func(time.Duration)
	logger      zerolog.Logger
}

// NewSender constructs a sender from config, applying defaults.
func NewSender(cfg Config) *Sender {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	return &Sender{
		client:      &http.Client{Timeout: cfg.Timeout},
		secret:      cfg.Secret,
		maxAttempts: cfg.MaxAttempts,
		backoffUnit: cfg.BackoffUnit,
		sleep:       cfg.Sleep,
		logger:      cfg.Logger.With().Str("component", "webhook_sender").Logger(),
	}
}

// Deliver posts the payload to url, retrying on network failure or non-2xx
// responses. After attempt k the sender waits 2^k backoff units before the
// next attempt. After the final failure the payload is abandoned; there is
// no dead-letter store.
func (s *Sender) Deliver(ctx context.Context, url string, payload dto.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		deliveries.WithLabelValues("encode_error").Inc()
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	logger := s.logger.With().Str("request_id", payload.RequestID).Str("url", url).Logger()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		logger.Info().Int("attempt", attempt).Msg("delivering webhook")

		status, err := s.post(ctx, url, body)
		if err == nil && status >= 200 && status < 300 {
			logger.Info().Int("status", status).Msg("webhook delivered")
			deliveries.WithLabelValues("delivered").Inc()
			return nil
		}

		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("webhook network failure")
		} else {
			logger.Warn().Int("status", status).Int("attempt", attempt).Msg("webhook rejected")
		}

		if attempt < s.maxAttempts {
			s.sleep(time.Duration(1<<attempt) * s.backoffUnit)
		}
	}

	logger.Error().Int("attempts", s.maxAttempts).Msg("webhook delivery abandoned")
	deliveries.WithLabelValues("abandoned").Inc()

	return fmt.Errorf("webhook delivery abandoned after %d attempts", s.maxAttempts)
}

func (s *Sender) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "grader-go-api/1.0")
	if s.secret != "" {
		req.Header.Set("Authorization", "Bearer "+s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
