// Package task orchestrates grading jobs: admission under a concurrency
// ceiling, scoring, result packaging, and handoff to webhook delivery.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/grader-go-api/internal/dto"
	"github.com/noah-isme/grader-go-api/internal/observability"
)

// Deliverer posts a terminal result to the caller's callback endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, url string, payload dto.WebhookPayload) error
}

// Task is one admitted grading job. It lives only in process memory: a
// crash between admission and delivery loses the task (known limitation).
type Task struct {
	RequestID   string
	CallbackURL string
	EnqueuedAt  time.Time

	// Process runs the grading work and must always return a terminal
	// result rather than panicking; the runner still guards against panics.
	Process func(ctx context.Context) dto.GradingResult
}

// Runner gates task execution behind a counting semaphore and guarantees
// that every admitted task produces exactly one delivery attempt sequence,
// whether scoring succeeded or failed.
type Runner struct {
	sem            *semaphore.Weighted
	deliverer      Deliverer
	scoringTimeout time.Duration
	tracer         trace.Tracer
	logger         zerolog.Logger
	now            func() time.Time
	wg             sync.WaitGroup
}

// NewRunner constructs a runner admitting at most maxConcurrent tasks into
// the scoring phase simultaneously.
func NewRunner(maxConcurrent int64, deliverer Deliverer, scoringTimeout time.Duration, logger zerolog.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if scoringTimeout <= 0 {
		scoringTimeout = 5 * time.Minute
	}

	return &Runner{
		sem:            semaphore.NewWeighted(maxConcurrent),
		deliverer:      deliverer,
		scoringTimeout: scoringTimeout,
		tracer:         otel.Tracer("github.com/noah-isme/grader-go-api/internal/task"),
		logger:         logger.With().Str("component", "task_runner").Logger(),
		now:            time.Now,
	}
}

// Submit queues the task and returns immediately. The task runs on its own
// goroutine: it waits for a scoring slot, executes, then delivers.
func (r *Runner) Submit(task Task) {
	r.wg.Add(1)
	go r.run(task)
}

// Wait blocks until all submitted tasks reach a terminal delivery state.
// Used during shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(task Task) {
	defer r.wg.Done()

	logger := r.logger.With().Str("request_id", task.RequestID).Logger()
	logger.Info().Msg("task queued, waiting for scoring slot")

	if err := r.sem.Acquire(context.Background(), 1); err != nil {
		logger.Error().Err(err).Msg("slot acquisition failed")
		return
	}

	payload := r.score(task, logger)

	// The slot is released before delivery so a slow callback endpoint
	// cannot starve scoring capacity.
	r.sem.Release(1)

	observability.TasksCompleted().WithLabelValues(payload.Status).Inc()

	if err := r.deliverer.Deliver(context.Background(), task.CallbackURL, payload); err != nil {
		logger.Error().Err(err).Msg("result delivery abandoned")
	}
}

func (r *Runner) score(task Task, logger zerolog.Logger) (payload dto.WebhookPayload) {
	observability.TasksActive().Inc()
	defer observability.TasksActive().Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.scoringTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "task.score", trace.WithAttributes(
		attribute.String("task.request_id", task.RequestID),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("grading task panicked")
			systemError := fmt.Sprintf("Internal Server Error: %v", rec)
			payload = dto.WebhookPayload{
				RequestID:   task.RequestID,
				Status:      dto.WebhookStatusError,
				Timestamp:   r.timestamp(),
				SystemError: &systemError,
			}
		}
	}()

	logger.Info().Msg("scoring started")
	result := task.Process(ctx)

	status := dto.WebhookStatusSuccess
	if result.Error != nil {
		status = dto.WebhookStatusError
		logger.Warn().Str("error", *result.Error).Msg("grading finished with error")
	} else {
		logger.Info().Msg("grading finished")
	}

	return dto.WebhookPayload{
		RequestID: task.RequestID,
		Status:    status,
		Timestamp: r.timestamp(),
		Data:      &result,
	}
}

func (r *Runner) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}
