package session

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/pipeline"
)

// GalleryLoader builds the gallery used for one session
type GalleryLoader interface {
	Load(ctx context.Context, dir string, opts ...gallery.LoadOption) (*gallery.Gallery, []gallery.Warning, error)
}

// FrameProcessor is satisfied by *pipeline.Pipeline
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, frame image.Image, now time.Time) (pipeline.FrameResult, error)
}

type Config struct {
	GalleryDir string
	Loader     GalleryLoader
	// OpenSource opens the camera for a new session
	OpenSource func() (capture.FrameSource, error)
	// NewProcessor builds the per-session pipeline around a freshly loaded gallery
	NewProcessor func(g *gallery.Gallery) FrameProcessor
	Sink         capture.Sink
	Events       pipeline.EventSink
	Logger       *slog.Logger
	Now          func() time.Time
}

// Status is a snapshot of the current or last session
type Status struct {
	ID             uuid.UUID         `json:"id"`
	Running        bool              `json:"running"`
	StartedAt      time.Time         `json:"started_at"`
	StoppedAt      *time.Time        `json:"stopped_at,omitempty"`
	Frames         int64             `json:"frames"`
	Marked         int64             `json:"marked"`
	GalleryEntries int               `json:"gallery_entries"`
	Warnings       []gallery.Warning `json:"warnings,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
}

// Controller owns the capture loop. The running flag is level-triggered: Stop
// clears it and the loop exits after the frame in progress.
type Controller struct {
	cfg     Config
	running atomic.Bool
	frames  atomic.Int64
	marked  atomic.Int64

	mu       sync.Mutex
	starting bool // gallery load in progress, outside mu
	done     chan struct{}
	err      error
	status   Status
}

func NewController(cfg Config) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sink == nil {
		cfg.Sink = capture.NopSink{}
	}
	if cfg.Events == nil {
		cfg.Events = pipeline.LogSink{Logger: cfg.Logger}
	}
	return &Controller{cfg: cfg}
}

// Start loads the gallery, opens the camera and runs the loop in the background
// until Stop is called, ctx is cancelled or the camera fails.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.starting || (c.done != nil && !isClosed(c.done)) {
		c.mu.Unlock()
		return domain.ErrSessionRunning
	}
	if !c.running.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return domain.ErrSessionRunning
	}
	c.starting = true
	c.mu.Unlock()

	// the load calls the provider once per image; Status stays available meanwhile
	g, warnings, src, err := c.prepare(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if err != nil {
		c.running.Store(false)
		return err
	}

	c.frames.Store(0)
	c.marked.Store(0)
	c.err = nil
	c.done = make(chan struct{})
	c.status = Status{
		ID:             uuid.New(),
		StartedAt:      c.cfg.Now(),
		GalleryEntries: g.Len(),
		Warnings:       warnings,
	}

	c.cfg.Logger.Info("session started",
		"session_id", c.status.ID,
		"gallery_entries", g.Len(),
		"warnings", len(warnings),
	)
	c.emit(domain.EventSessionStarted, "")

	go c.loop(ctx, src, c.cfg.NewProcessor(g), c.done)
	return nil
}

func (c *Controller) prepare(ctx context.Context) (*gallery.Gallery, []gallery.Warning, capture.FrameSource, error) {
	g, warnings, err := c.cfg.Loader.Load(ctx, c.cfg.GalleryDir)
	if err != nil {
		return nil, nil, nil, err
	}

	src, err := c.cfg.OpenSource()
	if err != nil {
		if !errors.Is(err, domain.ErrFrameCapture) {
			err = domain.ErrFrameCapture.WithError(err)
		}
		return nil, nil, nil, err
	}
	return g, warnings, src, nil
}

// Stop clears the running flag. It does not wait for the loop; use Wait.
func (c *Controller) Stop() error {
	if !c.running.Swap(false) {
		return domain.ErrSessionNotRunning
	}
	return nil
}

func (c *Controller) Running() bool {
	return c.running.Load()
}

// Wait blocks until the current session loop exits and returns its error
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Run starts a session and blocks until it ends. Cancelling ctx is a normal stop.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Wait()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.status
	s.Running = c.running.Load()
	s.Frames = c.frames.Load()
	s.Marked = c.marked.Load()
	return s
}

func (c *Controller) loop(ctx context.Context, src capture.FrameSource, proc FrameProcessor, done chan struct{}) {
	err := c.capture(ctx, src, proc)

	if cerr := src.Close(); cerr != nil {
		c.cfg.Logger.Warn("close frame source", "error", cerr)
	}

	c.mu.Lock()
	c.running.Store(false)
	c.err = err
	stopped := c.cfg.Now()
	c.status.StoppedAt = &stopped
	if err != nil {
		c.status.LastError = err.Error()
	}
	close(done)
	c.mu.Unlock()

	c.cfg.Logger.Info("session stopped", "frames", c.frames.Load(), "marked", c.marked.Load(), "error", err)
	c.emit(domain.EventSessionStopped, "")
}

func (c *Controller) capture(ctx context.Context, src capture.FrameSource, proc FrameProcessor) error {
	for c.running.Load() {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.cfg.Logger.Error("frame capture failed", "error", err)
			c.emit(domain.EventCaptureFailed, err.Error())
			if !errors.Is(err, domain.ErrFrameCapture) {
				err = domain.ErrFrameCapture.WithError(err)
			}
			return err
		}

		res, err := proc.ProcessFrame(ctx, frame, c.cfg.Now())
		if err != nil {
			c.cfg.Logger.Warn("frame skipped", "error", err)
			continue
		}

		c.frames.Add(1)
		c.marked.Add(int64(len(res.Marked)))

		if err := c.cfg.Sink.Show(ctx, res.Annotated); err != nil {
			c.cfg.Logger.Warn("display frame", "error", err)
		}
	}
	return nil
}

func (c *Controller) emit(t domain.EventType, message string) {
	event := domain.NewEvent(t, c.cfg.Now())
	event.Message = message
	c.cfg.Events.Emit(event)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
