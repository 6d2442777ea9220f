package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const queueSize = 64

// Notifier posts session events to an external URL. Emit only queues; Run
// performs the deliveries.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	events map[domain.EventType]bool
	jobs   chan *Job
	now    func() time.Time
}

func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var events map[domain.EventType]bool
	if len(cfg.Events) > 0 {
		events = make(map[domain.EventType]bool, len(cfg.Events))
		for _, e := range cfg.Events {
			events[e] = true
		}
	}

	return &Notifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "webhook"),
		events: events,
		jobs:   make(chan *Job, queueSize),
		now:    time.Now,
	}
}

// Wants reports whether events of type t are delivered
func (n *Notifier) Wants(t domain.EventType) bool {
	if t == domain.EventFrame {
		return false
	}
	return n.events == nil || n.events[t]
}

// Emit queues event for delivery. A full queue drops the event.
func (n *Notifier) Emit(event domain.Event) {
	if !n.Wants(event.Type) {
		return
	}

	payload, err := json.Marshal(EventPayload{Type: event.Type, Data: event, Timestamp: n.now()})
	if err != nil {
		n.logger.Error("failed to marshal webhook event", "error", err, "event_type", event.Type)
		return
	}

	job := &Job{ID: uuid.New(), EventType: event.Type, Payload: payload}
	select {
	case n.jobs <- job:
	default:
		n.logger.Warn("webhook queue full, event dropped", "event_type", event.Type, "identity", event.Identity)
	}
}

// Send posts one job. Any transport error or status >= 400 is returned.
func (n *Notifier) Send(ctx context.Context, job *Job) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(n.cfg.Secret, job.Payload))
	req.Header.Set(EventHeader, string(job.EventType))
	req.Header.Set("User-Agent", "Chamada-Webhook/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
