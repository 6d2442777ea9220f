package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Health(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(nil)
	app.Get("/health", handler.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var result HealthResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result.Status)
	assert.NotEmpty(t, result.Version)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]ReadinessCheck
		expectedStatus int
		expectedChecks map[string]string
	}{
		{
			name:           "no dependencies",
			expectedStatus: 200,
		},
		{
			name: "all healthy",
			checks: map[string]ReadinessCheck{
				"ledger": func(context.Context) error { return nil },
				"mirror": func(context.Context) error { return nil },
			},
			expectedStatus: 200,
			expectedChecks: map[string]string{"ledger": "ok", "mirror": "ok"},
		},
		{
			name: "mirror down",
			checks: map[string]ReadinessCheck{
				"ledger": func(context.Context) error { return nil },
				"mirror": func(context.Context) error { return errors.New("database unhealthy") },
			},
			expectedStatus: 503,
			expectedChecks: map[string]string{"ledger": "ok", "mirror": "database unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/ready", NewHealthHandler(tt.checks).Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var result HealthResponse
			require.NoError(t, json.Unmarshal(body, &result))
			assert.Equal(t, tt.expectedChecks, result.Checks)
		})
	}
}
