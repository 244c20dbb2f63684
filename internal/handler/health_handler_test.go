package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-go-api/internal/config"
)

type stubProbe struct {
	err error
}

func (p *stubProbe) Ping(_ context.Context) error { return p.err }

func (p *stubProbe) Model() string { return "probe-model" }

func getHealth(t *testing.T, probe ScorerProbe) HealthResponse {
	t.Helper()

	app := fiber.New()
	app.Get("/health", HealthCheck(config.Config{AppName: "Grader API", AppEnv: "test"}, probe))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestHealthCheckReportsScorerReachable(t *testing.T) {
	data := getHealth(t, &stubProbe{})

	require.Equal(t, "ok", data.Status)
	require.Equal(t, "Grader API", data.Service)
	require.Equal(t, "test", data.Environment)
	require.Equal(t, "probe-model", data.AIModel)
	require.Equal(t, "ok", data.AIStatus)
}

func TestHealthCheckReportsScorerUnreachable(t *testing.T) {
	data := getHealth(t, &stubProbe{err: errors.New("connection refused")})

	require.Equal(t, "ok", data.Status, "app health is independent of the backend")
	require.Equal(t, "unreachable", data.AIStatus)
}

func TestHealthCheckWithoutProbe(t *testing.T) {
	data := getHealth(t, nil)

	require.Equal(t, "ok", data.Status)
	require.Empty(t, data.AIModel)
	require.Empty(t, data.AIStatus)
}
