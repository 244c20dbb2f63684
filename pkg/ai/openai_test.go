package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "{\"score\": 8.5, \"feedback\": \"well argued\"}"},
			"finish_reason": "stop"
		}
	],
	"usage": {"prompt_tokens": 10, "completion_tokens": 12, "total_tokens": 22}
}`

func newScorerForServer(t *testing.T, server *httptest.Server, sleeps *[]time.Duration) *OpenAIScorer {
	t.Helper()

	scorer, err := NewOpenAIScorer(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
		Logger:  zerolog.Nop(),
		Sleep: func(d time.Duration) {
			*sleeps = append(*sleeps, d)
		},
	})
	require.NoError(t, err)
	return scorer
}

func TestScoreParsesModelResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	var sleeps []time.Duration
	scorer := newScorerForServer(t, server, &sleeps)

	output, err := scorer.Score(context.Background(), "grade this")
	require.NoError(t, err)
	require.InDelta(t, 8.5, output.Score, 1e-9)
	require.Equal(t, "well argued", output.Feedback)
	require.Empty(t, sleeps)
}

func TestScoreRetriesTransportFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	var sleeps []time.Duration
	scorer := newScorerForServer(t, server, &sleeps)

	output, err := scorer.Score(context.Background(), "grade this")
	require.NoError(t, err)
	require.InDelta(t, 8.5, output.Score, 1e-9)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestScoreGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var sleeps []time.Duration
	scorer := newScorerForServer(t, server, &sleeps)

	_, err := scorer.Score(context.Background(), "grade this")
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, sleeps, 2)
}

func TestScoreFailsFastOnUnparseableResponse(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "not json"}, "finish_reason": "stop"}
			]
		}`))
	}))
	defer server.Close()

	var sleeps []time.Duration
	scorer := newScorerForServer(t, server, &sleeps)

	_, err := scorer.Score(context.Background(), "grade this")
	require.Error(t, err)
	require.Equal(t, 1, calls, "a malformed body must not be retried")
}

func TestPingReportsBackendReachability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
	}))

	var sleeps []time.Duration
	scorer := newScorerForServer(t, server, &sleeps)
	require.NoError(t, scorer.Ping(context.Background()))

	server.Close()
	require.Error(t, scorer.Ping(context.Background()))
}

func TestNewOllamaScorerTargetsCompatEndpoint(t *testing.T) {
	scorer, err := NewOllamaScorer(OllamaConfig{Host: "http://localhost:11434/", Model: "llama3", Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Equal(t, "llama3", scorer.Model())

	_, err = NewOllamaScorer(OllamaConfig{Model: "llama3"})
	require.Error(t, err)
}
