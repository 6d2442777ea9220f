package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderFaceRec = "facerec"
	ProviderMock    = "mock"

	LivenessShared   = "shared"
	LivenessIdentity = "identity"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Files
	GalleryDir     string `envconfig:"GALLERY_DIR" default:"known_faces"`
	AttendanceFile string `envconfig:"ATTENDANCE_FILE" default:"attendance.csv"`
	ExportFile     string `envconfig:"EXPORT_FILE" default:"attendance_export.csv"`

	// Provider
	ProviderType   string        `envconfig:"PROVIDER_TYPE" default:"facerec"`
	FaceRecURL     string        `envconfig:"FACEREC_URL" default:"http://localhost:5001"`
	FaceRecTimeout time.Duration `envconfig:"FACEREC_TIMEOUT" default:"10s"`
	FaceRecRetries int           `envconfig:"FACEREC_RETRIES" default:"0"`
	FaceRecModel   string        `envconfig:"FACEREC_MODEL" default:"hog"`

	// Recognition
	MatchTolerance  float64       `envconfig:"MATCH_TOLERANCE" default:"0.4"`
	EARThreshold    float64       `envconfig:"EAR_THRESHOLD" default:"0.25"`
	EARConsecFrames int           `envconfig:"EAR_CONSEC_FRAMES" default:"3"`
	LivenessScope   string        `envconfig:"LIVENESS_SCOPE" default:"shared"`
	Cooldown        time.Duration `envconfig:"COOLDOWN" default:"1h"`
	Downscale       int           `envconfig:"DOWNSCALE" default:"4"`

	// Camera
	CameraInput  string `envconfig:"CAMERA_INPUT" default:"/dev/video0"`
	CameraFormat string `envconfig:"CAMERA_FORMAT" default:"v4l2"`

	// Database (optional attendance mirror)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Webhook (optional event notifications)
	WebhookURL         string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string   `envconfig:"WEBHOOK_SECRET"`
	WebhookEvents      []string `envconfig:"WEBHOOK_EVENTS" default:"attendance.marked"`
	WebhookMaxAttempts int      `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
}

// LoadDotEnv reads .env style files into the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.MatchTolerance <= 0 || c.MatchTolerance > 1:
		return fmt.Errorf("MATCH_TOLERANCE must be in (0, 1], got %v", c.MatchTolerance)
	case c.EARThreshold <= 0 || c.EARThreshold >= 1:
		return fmt.Errorf("EAR_THRESHOLD must be in (0, 1), got %v", c.EARThreshold)
	case c.EARConsecFrames < 1:
		return fmt.Errorf("EAR_CONSEC_FRAMES must be at least 1, got %d", c.EARConsecFrames)
	case c.Downscale < 1:
		return fmt.Errorf("DOWNSCALE must be at least 1, got %d", c.Downscale)
	case c.Cooldown < 0:
		return fmt.Errorf("COOLDOWN must not be negative, got %s", c.Cooldown)
	case c.FaceRecRetries < 0:
		return fmt.Errorf("FACEREC_RETRIES must not be negative, got %d", c.FaceRecRetries)
	}

	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an http(s) URL, got %q", c.WebhookURL)
		}
		if c.WebhookMaxAttempts < 1 || c.WebhookMaxAttempts > 20 {
			return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be between 1 and 20, got %d", c.WebhookMaxAttempts)
		}
	}

	switch c.ProviderType {
	case ProviderFaceRec, ProviderMock:
	default:
		return fmt.Errorf("unknown PROVIDER_TYPE %q", c.ProviderType)
	}

	switch c.LivenessScope {
	case LivenessShared, LivenessIdentity:
	default:
		return fmt.Errorf("unknown LIVENESS_SCOPE %q", c.LivenessScope)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MirrorEnabled reports whether attendance rows are mirrored to PostgreSQL
func (c *Config) MirrorEnabled() bool {
	return c.DatabaseURL != ""
}

// WebhookEnabled reports whether session events are posted to WEBHOOK_URL
func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}
