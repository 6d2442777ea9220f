package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"app error", domain.ErrStudentNotFound, 404, "STUDENT_NOT_FOUND"},
		{"wrapped app error", fmt.Errorf("add student: %w", domain.ErrStudentExists), 409, "STUDENT_ALREADY_EXISTS"},
		{"app error with cause", domain.ErrLedgerWrite.WithError(errors.New("disk full")), 500, "LEDGER_WRITE_ERROR"},
		{"fiber error", fiber.ErrMethodNotAllowed, 405, "HTTP_ERROR"},
		{"body too large", fiber.ErrRequestEntityTooLarge, 413, "PAYLOAD_TOO_LARGE"},
		{"websocket without upgrade", fiber.ErrUpgradeRequired, 426, "UPGRADE_REQUIRED"},
		{"unknown error", errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			raw, _ := io.ReadAll(resp.Body)
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.expectedCode, body.Error.Code)
		})
	}
}

func TestRecover(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
	app.Use(Recover(testLogger()))
	app.Get("/", func(c *fiber.Ctx) error { panic("nil map") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, string(raw), "nil map", "panic values stay in the logs")
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/attendance", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "ROUTE_NOT_FOUND")
}

func TestLogger_RecordsHandledStatus(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
	app.Use(Logger(testLogger()))
	app.Get("/", func(c *fiber.Ctx) error { return domain.ErrRecordNotFound })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
