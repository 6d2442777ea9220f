package facerec

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const jpegQuality = 90

// Provider implements provider.FaceProvider using a face_recognition HTTP service
type Provider struct {
	client *Client
}

// NewProvider creates a new face_recognition provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Locate detects face boxes in the image
func (p *Provider) Locate(ctx context.Context, img image.Image) ([]domain.BoundingBox, error) {
	imageBase64, err := encodeImage(img)
	if err != nil {
		return nil, fmt.Errorf("locate faces: %w", err)
	}

	resp, err := p.client.Locations(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("locate faces: %w", err)
	}

	boxes := make([]domain.BoundingBox, 0, len(resp.Locations))
	for _, loc := range resp.Locations {
		boxes = append(boxes, fromLocation(loc))
	}

	return boxes, nil
}

// Encode computes one embedding per box
func (p *Provider) Encode(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.Embedding, error) {
	if len(boxes) == 0 {
		return nil, nil
	}

	imageBase64, err := encodeImage(img)
	if err != nil {
		return nil, fmt.Errorf("encode faces: %w", err)
	}

	resp, err := p.client.Encodings(ctx, imageBase64, toLocations(boxes))
	if err != nil {
		return nil, fmt.Errorf("encode faces: %w", err)
	}

	if len(resp.Encodings) != len(boxes) {
		return nil, fmt.Errorf("encode faces: %w: got %d encodings for %d boxes",
			ErrInvalidResponse, len(resp.Encodings), len(boxes))
	}

	embeddings := make([]domain.Embedding, len(resp.Encodings))
	for i, enc := range resp.Encodings {
		embeddings[i] = domain.Embedding(enc)
	}

	return embeddings, nil
}

// Landmarks fetches six-point eye contours per box
func (p *Provider) Landmarks(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.EyeLandmarks, error) {
	if len(boxes) == 0 {
		return nil, nil
	}

	imageBase64, err := encodeImage(img)
	if err != nil {
		return nil, fmt.Errorf("face landmarks: %w", err)
	}

	resp, err := p.client.Landmarks(ctx, imageBase64, toLocations(boxes))
	if err != nil {
		return nil, fmt.Errorf("face landmarks: %w", err)
	}

	if len(resp.Landmarks) != len(boxes) {
		return nil, fmt.Errorf("face landmarks: %w: got %d for %d boxes",
			ErrLandmarksMissing, len(resp.Landmarks), len(boxes))
	}

	out := make([]domain.EyeLandmarks, len(resp.Landmarks))
	for i, lm := range resp.Landmarks {
		left, err := toEye(lm.LeftEye)
		if err != nil {
			return nil, fmt.Errorf("face landmarks: left eye %d: %w", i, err)
		}
		right, err := toEye(lm.RightEye)
		if err != nil {
			return nil, fmt.Errorf("face landmarks: right eye %d: %w", i, err)
		}
		out[i] = domain.EyeLandmarks{Left: left, Right: right}
	}

	return out, nil
}

func toEye(points [][2]float64) (domain.Eye, error) {
	var eye domain.Eye
	if len(points) != len(eye) {
		return eye, fmt.Errorf("%w: expected %d points, got %d", ErrLandmarksMissing, len(eye), len(points))
	}
	for i, pt := range points {
		eye[i] = domain.Point{X: pt[0], Y: pt[1]}
	}
	return eye, nil
}

func fromLocation(loc Location) domain.BoundingBox {
	return domain.BoundingBox{Top: loc[0], Right: loc[1], Bottom: loc[2], Left: loc[3]}
}

func toLocations(boxes []domain.BoundingBox) []Location {
	locs := make([]Location, len(boxes))
	for i, b := range boxes {
		locs[i] = Location{b.Top, b.Right, b.Bottom, b.Left}
	}
	return locs
}

func encodeImage(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrInvalidImageFormat
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Ensure Provider implements provider.FaceProvider
var _ provider.FaceProvider = (*Provider)(nil)
