package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/capture"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ledger"
	"github.com/saturnino-fabrica-de-software/chamada/internal/liveness"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/session"
	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
)

// store is the attendance ledger plus the optional PostgreSQL mirror behind it
type store struct {
	ledger *ledger.Ledger
	pool   *pgxpool.Pool
	repo   *repository.AttendanceRepository
}

func (s *store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (a *app) openStore(ctx context.Context) (*store, error) {
	s := &store{}
	opts := []ledger.Option{
		ledger.WithCooldown(a.cfg.Cooldown),
		ledger.WithLogger(a.logger),
	}

	if a.cfg.MirrorEnabled() {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(a.cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("attendance mirror: %w", err)
		}
		s.pool = pool
		s.repo = repository.NewAttendanceRepository(pool)
		opts = append(opts, ledger.WithMirror(s.repo))
		a.logger.Info("attendance mirror enabled")
	}

	l, err := ledger.Open(a.cfg.AttendanceFile, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.ledger = l
	return s, nil
}

func (a *app) provider() (provider.FaceProvider, error) {
	p, err := face.NewFaceProvider(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("face provider: %w", err)
	}
	return p, nil
}

// cameraConfig applies command line overrides on top of CAMERA_INPUT and CAMERA_FORMAT
func (a *app) cameraConfig(input, format string) capture.FFmpegConfig {
	cfg := capture.FFmpegConfig{Input: a.cfg.CameraInput, Format: a.cfg.CameraFormat}
	if input != "" {
		cfg.Input = input
		cfg.Format = format
	}
	return cfg
}

// eventSinks logs every event, passes it to extra and, when WEBHOOK_URL is set,
// to a webhook notifier running until ctx ends
func (a *app) eventSinks(ctx context.Context, extra ...pipeline.EventSink) pipeline.EventSink {
	sinks := pipeline.Sinks{pipeline.LogSink{Logger: a.logger}}
	sinks = append(sinks, extra...)

	if a.cfg.WebhookEnabled() {
		events := make([]domain.EventType, len(a.cfg.WebhookEvents))
		for i, e := range a.cfg.WebhookEvents {
			events[i] = domain.EventType(e)
		}
		n := webhook.NewNotifier(webhook.Config{
			URL:         a.cfg.WebhookURL,
			Secret:      a.cfg.WebhookSecret,
			Events:      events,
			MaxAttempts: a.cfg.WebhookMaxAttempts,
		}, a.logger)
		go n.Run(ctx)
		sinks = append(sinks, n)
	}
	return sinks
}

// newController assembles the capture pipeline around p and l. Each session
// gets a fresh liveness tracker and the gallery loaded at its start.
func (a *app) newController(p provider.FaceProvider, l *ledger.Ledger, camera capture.FFmpegConfig, sink capture.Sink, events pipeline.EventSink) *session.Controller {
	return session.NewController(session.Config{
		GalleryDir: a.cfg.GalleryDir,
		Loader:     gallery.NewLoader(p, a.logger),
		OpenSource: func() (capture.FrameSource, error) {
			src, err := capture.OpenFFmpeg(camera, a.logger)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		NewProcessor: func(g *gallery.Gallery) session.FrameProcessor {
			return pipeline.New(
				face.NewLocalizer(p, a.cfg.Downscale, a.logger),
				p,
				matcher.New(a.cfg.MatchTolerance),
				g,
				liveness.NewTracker(a.cfg.LivenessScope, a.cfg.EARThreshold, a.cfg.EARConsecFrames),
				l,
				a.logger,
			).WithEvents(events)
		},
		Sink:   sink,
		Events: events,
		Logger: a.logger,
	})
}

// audited runs op and records it as a command line action
func (a *app) audited(ctx context.Context, t audit.EventType, student string, metadata map[string]string, op func() error) error {
	err := op()
	event := audit.Event{EventType: t, Student: student, Actor: audit.ActorCLI, Metadata: metadata}.Result(err)
	_ = audit.NewSlogLogger(a.logger).Log(ctx, event)
	return err
}
