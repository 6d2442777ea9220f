package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/annotate"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/liveness"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

var ErrEncodingMismatch = errors.New("provider returned a different number of encodings than boxes")

// AttendanceMarker records a confirmed presence
type AttendanceMarker interface {
	TryMark(ctx context.Context, identity string, now time.Time) (domain.MarkResult, error)
}

// FrameResult is the outcome of one frame
type FrameResult struct {
	Detections []domain.Detection
	Annotated  *image.RGBA
	Marked     []string
}

// Pipeline runs detection, recognition, liveness and attendance on single frames.
// It is not safe for concurrent use: the liveness tracker assumes frames arrive
// in capture order.
type Pipeline struct {
	localizer *face.Localizer
	provider  provider.FaceProvider
	matcher   *matcher.Matcher
	gallery   matcher.Gallery
	tracker   liveness.Tracker
	ledger    AttendanceMarker
	events    EventSink
	logger    *slog.Logger
}

func New(
	localizer *face.Localizer,
	faceProvider provider.FaceProvider,
	m *matcher.Matcher,
	gallery matcher.Gallery,
	tracker liveness.Tracker,
	ledger AttendanceMarker,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		localizer: localizer,
		provider:  faceProvider,
		matcher:   m,
		gallery:   gallery,
		tracker:   tracker,
		ledger:    ledger,
		events:    nopSink{},
		logger:    logger,
	}
}

func (p *Pipeline) WithEvents(sink EventSink) *Pipeline {
	if sink != nil {
		p.events = sink
	}
	return p
}

// ProcessFrame handles one captured frame. Faces are visited in provider order;
// only recognized faces feed the liveness tracker. A ledger write failure is
// reported as an event and does not fail the frame.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame image.Image, now time.Time) (FrameResult, error) {
	boxes, small, err := p.localizer.Locate(ctx, frame)
	if err != nil {
		return FrameResult{}, err
	}

	if len(boxes) == 0 {
		p.logger.Debug("no faces in frame")
		return FrameResult{Annotated: annotate.Annotate(frame, nil)}, nil
	}

	embeddings, err := p.provider.Encode(ctx, small, boxes)
	if err != nil {
		return FrameResult{}, fmt.Errorf("encode: %w", err)
	}
	if len(embeddings) != len(boxes) {
		return FrameResult{}, fmt.Errorf("%w: %d boxes, %d encodings", ErrEncodingMismatch, len(boxes), len(embeddings))
	}

	result := FrameResult{Detections: make([]domain.Detection, 0, len(boxes))}

	for i := range boxes {
		f := domain.DetectedFace{Box: boxes[i], Embedding: embeddings[i]}
		identity, distance := p.matcher.Match(f.Embedding, p.gallery)

		result.Detections = append(result.Detections, domain.Detection{
			Box:      p.localizer.ScaleUp(f.Box),
			Identity: identity,
			Distance: distance,
		})

		if identity == domain.Unknown {
			p.logger.Debug("face not recognized", "distance", distance, "tolerance", p.matcher.Tolerance())
			p.emit(domain.EventUnknownFace, "", distance, "", now)
			continue
		}

		if p.observe(ctx, small, &f, identity) != liveness.BlinkCompleted {
			continue
		}

		if p.mark(ctx, identity, distance, now) {
			result.Marked = append(result.Marked, identity)
		}
	}

	result.Annotated = annotate.Annotate(frame, result.Detections)
	return result, nil
}

// observe fills f.Eyes and feeds them to the liveness tracker
func (p *Pipeline) observe(ctx context.Context, small image.Image, f *domain.DetectedFace, identity string) liveness.Event {
	landmarks, err := p.provider.Landmarks(ctx, small, []domain.BoundingBox{f.Box})
	if err != nil {
		p.logger.Warn("landmarks unavailable", "identity", identity, "error", err)
		return liveness.NoEvent
	}
	if len(landmarks) == 0 {
		return liveness.NoEvent
	}

	f.Eyes = &landmarks[0]
	return p.tracker.Observe(identity, *f.Eyes)
}

func (p *Pipeline) mark(ctx context.Context, identity string, distance float64, now time.Time) bool {
	result, err := p.ledger.TryMark(ctx, identity, now)
	if err != nil {
		p.logger.Error("mark attendance", "identity", identity, "error", err)
		p.emit(domain.EventMarkFailed, identity, distance, err.Error(), now)
		return false
	}

	switch result {
	case domain.Marked:
		p.logger.Info("attendance marked", "identity", identity, "distance", distance)
		p.emit(domain.EventMarked, identity, distance, "", now)
		return true
	default:
		p.logger.Info("attendance already marked", "identity", identity)
		p.emit(domain.EventAlreadyMarked, identity, distance, "", now)
		return false
	}
}

func (p *Pipeline) emit(t domain.EventType, identity string, distance float64, message string, now time.Time) {
	event := domain.NewEvent(t, now)
	event.Identity = identity
	event.Message = message
	// +Inf (empty gallery) has no JSON representation
	if !math.IsInf(distance, 0) && !math.IsNaN(distance) {
		event.Distance = distance
	}
	p.events.Emit(event)
}
