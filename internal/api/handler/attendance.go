package handler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// AttendanceLedger is the subset of the ledger exposed over HTTP
type AttendanceLedger interface {
	Records() []domain.AttendanceRecord
	Update(ctx context.Context, name string, at time.Time) (domain.AttendanceRecord, error)
	Delete(ctx context.Context, name string) error
	Export(w io.Writer) error
}

type AttendanceHandler struct {
	auditor
	ledger     AttendanceLedger
	exportName string
	logger     *slog.Logger
}

func NewAttendanceHandler(ledger AttendanceLedger, exportName string, logger *slog.Logger) *AttendanceHandler {
	if exportName == "" {
		exportName = "attendance_export.csv"
	}
	return &AttendanceHandler{
		ledger:     ledger,
		exportName: exportName,
		logger:     logger,
	}
}

// WithAudit records edits, deletions and exports to l
func (h *AttendanceHandler) WithAudit(l audit.Logger) *AttendanceHandler {
	h.auditor.log = l
	return h
}

// AttendanceResponse uses the ledger's timestamp layout
type AttendanceResponse struct {
	Name               string `json:"name"`
	Time               string `json:"time"`
	LastAttendanceTime string `json:"last_attendance_time"`
}

type AttendanceListResponse struct {
	Records []AttendanceResponse `json:"records"`
	Total   int                  `json:"total"`
}

type UpdateAttendanceRequest struct {
	Time string `json:"time"`
}

func toAttendanceResponse(r domain.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		Name:               r.Name,
		Time:               domain.FormatTimestamp(r.Time),
		LastAttendanceTime: domain.FormatTimestamp(r.LastAttendanceTime),
	}
}

// List GET /v1/attendance - records sorted by name
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	records := h.ledger.Records()

	resp := AttendanceListResponse{
		Records: make([]AttendanceResponse, 0, len(records)),
		Total:   len(records),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, toAttendanceResponse(r))
	}

	return c.JSON(resp)
}

// Update PUT /v1/attendance/:name - manual correction of a record
func (h *AttendanceHandler) Update(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return err
	}

	var req UpdateAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	at, err := domain.ParseTimestamp(strings.TrimSpace(req.Time))
	if err != nil {
		return err
	}

	record, err := h.ledger.Update(c.UserContext(), name, at)
	h.record(c, audit.EventAttendanceEdited, name, err, map[string]string{"time": domain.FormatTimestamp(at)})
	if err != nil {
		return err
	}

	h.logger.Info("attendance edited", "name", name, "time", req.Time)

	return c.JSON(toAttendanceResponse(record))
}

// Delete DELETE /v1/attendance/:name
func (h *AttendanceHandler) Delete(c *fiber.Ctx) error {
	name, err := nameParam(c)
	if err != nil {
		return err
	}

	err = h.ledger.Delete(c.UserContext(), name)
	h.record(c, audit.EventAttendanceDeleted, name, err, nil)
	if err != nil {
		return err
	}

	h.logger.Info("attendance deleted", "name", name)

	return c.SendStatus(fiber.StatusNoContent)
}

// Export GET /v1/attendance/export - CSV download in ledger format
func (h *AttendanceHandler) Export(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(h.exportName)

	err := h.ledger.Export(c)
	h.record(c, audit.EventAttendanceExport, "", err, nil)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return nil
}
