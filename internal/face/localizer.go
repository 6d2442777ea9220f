package face

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

// DefaultDownscale is the linear reduction applied before detection (1/4, i.e. 1/16 area)
const DefaultDownscale = 4

// Localizer finds face boxes on a reduced copy of the frame.
// Boxes are returned in reduced coordinates; ScaleUp maps them back.
type Localizer struct {
	provider provider.FaceProvider
	factor   int
	logger   *slog.Logger
}

func NewLocalizer(p provider.FaceProvider, factor int, logger *slog.Logger) *Localizer {
	if factor < 1 {
		factor = DefaultDownscale
	}
	return &Localizer{
		provider: p,
		factor:   factor,
		logger:   logger,
	}
}

// Factor returns the linear downscale factor
func (l *Localizer) Factor() int {
	return l.factor
}

// Locate downscales frame and detects faces on the reduced copy. The reduced
// frame is returned so that encodings and landmarks use the same pixels the
// boxes refer to.
func (l *Localizer) Locate(ctx context.Context, frame image.Image) ([]domain.BoundingBox, *image.RGBA, error) {
	small := Downscale(frame, l.factor)
	if small.Bounds().Empty() {
		return nil, small, domain.ErrInvalidImage
	}

	boxes, err := l.provider.Locate(ctx, small)
	if err != nil {
		return nil, small, fmt.Errorf("locate: %w", err)
	}

	l.logger.Debug("faces located",
		"count", len(boxes),
		"frame_width", frame.Bounds().Dx(),
		"small_width", small.Bounds().Dx(),
	)

	return boxes, small, nil
}

// ScaleUp maps a reduced-frame box to full-frame coordinates
func (l *Localizer) ScaleUp(box domain.BoundingBox) domain.BoundingBox {
	return box.Scale(l.factor)
}

// Downscale returns a copy of src reduced by factor on each axis, rounded to the
// nearest pixel. The resampler is deterministic: equal frames give equal output.
func Downscale(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	if factor <= 1 {
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	w := int(math.Round(float64(b.Dx()) / float64(factor)))
	h := int(math.Round(float64(b.Dy()) / float64(factor)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
