package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Message is the envelope written to websocket clients
type Message struct {
	Type      domain.EventType `json:"type"`
	Data      interface{}      `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// FrameData carries one annotated frame as base64 JPEG
type FrameData struct {
	JPEG string `json:"jpeg"`
}

type outbound struct {
	payload []byte
	frame   bool
}
