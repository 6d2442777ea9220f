package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable operator action
type EventType string

const (
	EventStudentEnrolled   EventType = "STUDENT_ENROLLED"
	EventStudentRemoved    EventType = "STUDENT_REMOVED"
	EventAttendanceEdited  EventType = "ATTENDANCE_EDITED"
	EventAttendanceDeleted EventType = "ATTENDANCE_DELETED"
	EventAttendanceExport  EventType = "ATTENDANCE_EXPORTED"
)

// Origin of the action
const (
	ActorAPI = "api"
	ActorCLI = "cli"
)

// Event records a change to biometric reference data or to the attendance
// ledger made by an operator, for LGPD accountability. Marks made by the capture
// loop are not audit events.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	Student   string            `json:"student,omitempty"`
	Actor     string            `json:"actor"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event, filling in the ID and timestamp when missing
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.LogAttrs(ctx, level, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("student", event.Student),
		slog.String("actor", event.Actor),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// Result fills Success and Error from the outcome of the audited operation
func (e Event) Result(err error) Event {
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// NoOpLogger discards events
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
