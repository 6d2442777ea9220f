package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

type Config struct {
	URL    string
	Secret string
	// Events to deliver; empty means every event except frames
	Events      []domain.EventType
	MaxAttempts int
	Timeout     time.Duration
}

// Job is one delivery of an event, retried with exponential backoff
type Job struct {
	ID          uuid.UUID
	EventType   domain.EventType
	Payload     []byte
	Attempts    int
	NextRetryAt time.Time
	LastError   string
}

// EventPayload is the JSON body posted to the webhook URL
type EventPayload struct {
	Type      domain.EventType `json:"type"`
	Data      domain.Event     `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}
