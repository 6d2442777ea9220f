package annotate

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

var (
	BoxColor   = color.RGBA{R: 255, A: 255}
	LabelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	thickness   = 2
	labelOffset = 6
	bandPadding = 2
)

// Annotate returns a copy of frame with one box and label per detection.
// Boxes are in full-frame coordinates. frame is not modified.
func Annotate(frame image.Image, detections []domain.Detection) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, frame, b.Min, draw.Src)

	face := basicfont.Face7x13
	for _, d := range detections {
		r := d.Box.Rect()
		drawRect(dst, r, BoxColor)

		label := d.Identity
		if label == "" {
			label = domain.Unknown
		}
		drawLabel(dst, face, label, image.Pt(r.Min.X+labelOffset, r.Max.Y-labelOffset))
	}
	return dst
}

// drawRect outlines r with a border of thickness pixels drawn inward
func drawRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text with its baseline origin at dot over a filled band
func drawLabel(dst draw.Image, face font.Face, text string, dot image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(LabelColor),
		Face: face,
		Dot:  fixed.P(dot.X, dot.Y),
	}

	bounds, _ := d.BoundString(text)
	band := image.Rect(
		bounds.Min.X.Floor()-bandPadding,
		bounds.Min.Y.Floor()-bandPadding,
		bounds.Max.X.Ceil()+bandPadding,
		bounds.Max.Y.Ceil()+bandPadding,
	).Intersect(dst.Bounds())
	draw.Draw(dst, band, image.NewUniform(BoxColor), image.Point{}, draw.Src)

	d.DrawString(text)
}
