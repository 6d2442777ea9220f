package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMarked         EventType = "attendance.marked"
	EventAlreadyMarked  EventType = "attendance.already_marked"
	EventMarkFailed     EventType = "attendance.mark_failed"
	EventUnknownFace    EventType = "face.unknown"
	EventSessionStarted EventType = "session.started"
	EventSessionStopped EventType = "session.stopped"
	EventCaptureFailed  EventType = "session.capture_failed"
	EventFrame          EventType = "frame"
)

// Event is an informational notification emitted by the capture pipeline
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	Identity  string    `json:"identity,omitempty"`
	Distance  float64   `json:"distance,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, at time.Time) Event {
	return Event{ID: uuid.New(), Type: t, Timestamp: at}
}
