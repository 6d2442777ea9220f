package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
)

// auditor records operator changes made over HTTP
type auditor struct {
	log audit.Logger
}

func (a *auditor) record(c *fiber.Ctx, t audit.EventType, student string, err error, metadata map[string]string) {
	if a.log == nil {
		return
	}
	requestID, _ := c.Locals("requestid").(string)
	event := audit.Event{
		EventType: t,
		Student:   student,
		Actor:     audit.ActorAPI,
		RequestID: requestID,
		Metadata:  metadata,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}.Result(err)
	_ = a.log.Log(c.UserContext(), event)
}
