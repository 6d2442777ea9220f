package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
)

type SessionController interface {
	Start(ctx context.Context) error
	Stop() error
	Status() session.Status
}

// SessionHandler controls the capture loop. Sessions outlive the request that
// started them, so they run under the server's context.
type SessionHandler struct {
	controller SessionController
	baseCtx    context.Context
	logger     *slog.Logger
}

func NewSessionHandler(baseCtx context.Context, controller SessionController, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		baseCtx:    baseCtx,
		logger:     logger,
	}
}

// Start POST /v1/session/start
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	if err := h.controller.Start(h.baseCtx); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.controller.Status())
}

// Stop POST /v1/session/stop - the loop exits after the frame in progress
func (h *SessionHandler) Stop(c *fiber.Ctx) error {
	if err := h.controller.Stop(); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.controller.Status())
}

// Status GET /v1/session
func (h *SessionHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.controller.Status())
}
