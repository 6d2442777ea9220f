package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/facerec"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
)

// ProviderType defines supported face analysis provider types
type ProviderType string

const (
	// ProviderTypeFaceRec is the face_recognition HTTP service (dlib HOG/CNN + ResNet)
	ProviderTypeFaceRec ProviderType = config.ProviderFaceRec
	// ProviderTypeMock is the deterministic in-process provider for dev/test
	ProviderTypeMock ProviderType = config.ProviderMock
)

// NewFaceProvider creates a FaceProvider instance based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "facerec" or "mock" (default: "facerec")
//   - FACEREC_URL: face_recognition service URL (default: "http://localhost:5001")
//   - FACEREC_TIMEOUT, FACEREC_RETRIES, FACEREC_MODEL
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	providerType := ProviderType(cfg.ProviderType)

	switch providerType {
	case ProviderTypeFaceRec, "":
		return createFaceRecProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeFaceRec, ProviderTypeMock)
	}
}

// createFaceRecProvider creates a face_recognition provider instance
func createFaceRecProvider(cfg *config.Config) provider.FaceProvider {
	fc := facerec.DefaultConfig()

	if cfg.FaceRecURL != "" {
		fc.BaseURL = cfg.FaceRecURL
	}
	if cfg.FaceRecTimeout > 0 {
		fc.Timeout = cfg.FaceRecTimeout
	}
	if cfg.FaceRecModel != "" {
		fc.Model = cfg.FaceRecModel
	}
	fc.RetryCount = cfg.FaceRecRetries

	return facerec.NewProvider(fc)
}
