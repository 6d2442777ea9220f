package mock

import (
	"context"
	"crypto/sha256"
	"image"
	"image/color"
	"math"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

const (
	embeddingDimension = 128
	signatureSize      = 8
	signatureLevels    = 16
)

// Provider implementa provider.FaceProvider para testes e desenvolvimento.
// Imagens de cor uniforme não têm face; qualquer outra tem uma face centralizada.
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// Locate simula detecção: uma caixa central ocupando metade da imagem
func (p *Provider) Locate(ctx context.Context, img image.Image) ([]domain.BoundingBox, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, domain.ErrInvalidImage
	}
	if isUniform(img) {
		return []domain.BoundingBox{}, nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	return []domain.BoundingBox{{
		Top:    b.Min.Y + h/4,
		Right:  b.Min.X + w*3/4,
		Bottom: b.Min.Y + h*3/4,
		Left:   b.Min.X + w/4,
	}}, nil
}

// Encode gera embedding determinístico baseado no hash da região da face
func (p *Provider) Encode(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.Embedding, error) {
	if img == nil {
		return nil, domain.ErrInvalidImage
	}
	out := make([]domain.Embedding, len(boxes))
	for i, box := range boxes {
		out[i] = generateEmbedding(signature(img, box.Rect()))
	}
	return out, nil
}

// Landmarks devolve olhos abertos (EAR ~0.33) posicionados na caixa
func (p *Provider) Landmarks(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.EyeLandmarks, error) {
	out := make([]domain.EyeLandmarks, len(boxes))
	for i, box := range boxes {
		w := float64(box.Right-box.Left) / 5
		y := float64(box.Top) + float64(box.Bottom-box.Top)*0.4
		out[i] = domain.EyeLandmarks{
			Left:  OpenEye(float64(box.Left)+w, y, w),
			Right: OpenEye(float64(box.Left)+3*w, y, w),
		}
	}
	return out, nil
}

// OpenEye builds a six-point eye of width w starting at (x, y) with EAR 1/3
func OpenEye(x, y, w float64) domain.Eye {
	return EyeWithRatio(x, y, w, 1.0/3)
}

// EyeWithRatio builds a six-point eye whose aspect ratio is exactly ear
func EyeWithRatio(x, y, w, ear float64) domain.Eye {
	half := ear * w / 2
	return domain.Eye{
		{X: x, Y: y},
		{X: x + w/3, Y: y - half},
		{X: x + 2*w/3, Y: y - half},
		{X: x + w, Y: y},
		{X: x + 2*w/3, Y: y + half},
		{X: x + w/3, Y: y + half},
	}
}

func isUniform(img image.Image) bool {
	b := img.Bounds()
	first := color.RGBAModel.Convert(img.At(b.Min.X, b.Min.Y))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) != first {
				return false
			}
		}
	}
	return true
}

// signature reduz a região a uma grade 8x8 de cinza quantizado, de modo que a
// mesma face em resoluções diferentes produza o mesmo hash
func signature(img image.Image, r image.Rectangle) []byte {
	r = r.Intersect(img.Bounds())
	sig := make([]byte, 0, signatureSize*signatureSize)
	if r.Empty() {
		return sig
	}
	for gy := 0; gy < signatureSize; gy++ {
		for gx := 0; gx < signatureSize; gx++ {
			x := r.Min.X + (2*gx+1)*r.Dx()/(2*signatureSize)
			y := r.Min.Y + (2*gy+1)*r.Dy()/(2*signatureSize)
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			sig = append(sig, g.Y/(256/signatureLevels))
		}
	}
	return sig
}

// generateEmbedding gera embedding determinístico e normalizado a partir do hash
func generateEmbedding(data []byte) domain.Embedding {
	hash := sha256.Sum256(data)
	embedding := make(domain.Embedding, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.FaceProvider = (*Provider)(nil)
