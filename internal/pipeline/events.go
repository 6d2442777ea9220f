package pipeline

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// EventSink receives pipeline notifications. Emit must not block the capture loop.
type EventSink interface {
	Emit(event domain.Event)
}

type nopSink struct{}

func (nopSink) Emit(domain.Event) {}

// LogSink writes every event to the logger
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(event domain.Event) {
	level := slog.LevelInfo
	switch event.Type {
	case domain.EventUnknownFace:
		level = slog.LevelDebug
	case domain.EventMarkFailed, domain.EventCaptureFailed:
		level = slog.LevelError
	}

	s.Logger.Log(context.Background(), level, "event",
		"type", event.Type,
		"identity", event.Identity,
		"message", event.Message,
	)
}

// Sinks fans an event out to several sinks in order
type Sinks []EventSink

func (s Sinks) Emit(event domain.Event) {
	for _, sink := range s {
		sink.Emit(event)
	}
}
