package provider

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// FaceProvider define a interface para provedores de análise facial.
// Os métodos espelham as primitivas do face_recognition: localizar, codificar e
// extrair landmarks dos olhos para as mesmas caixas.
type FaceProvider interface {
	// Locate retorna as caixas das faces encontradas na imagem, na ordem do detector
	Locate(ctx context.Context, img image.Image) ([]domain.BoundingBox, error)

	// Encode retorna um embedding por caixa, na mesma ordem
	Encode(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.Embedding, error)

	// Landmarks retorna os seis pontos de cada olho por caixa, na mesma ordem
	Landmarks(ctx context.Context, img image.Image, boxes []domain.BoundingBox) ([]domain.EyeLandmarks, error)
}
