package detect

import (
	"context"
	"time"

	"github.com/bananasnap/gridsnap/pkg/grid"
)

// DefaultWhitelist restricts recognition to tile characters
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultTimeout bounds a single detection call
const DefaultTimeout = 60 * time.Second

// Config represents the configuration for a detector
type Config struct {
	Detector string
	// Language is a hint in the detector's own notation; empty uses the detector default
	Language string
	// Model is read by detectors backed by a hosted model
	Model           string
	Whitelist       string
	CredentialsFile string
	Timeout         time.Duration
}

// Detector interface that all text detection engines must implement
type Detector interface {
	// Detect finds text in an image and returns normalized fragments
	Detect(ctx context.Context, config Config, imagePath string) ([]grid.Fragment, error)
	// Name returns the detector's name
	Name() string
	// ValidateConfig validates the detector-specific configuration
	ValidateConfig(config Config) error
}

// WithTimeout derives a context bounded by the configured timeout
func WithTimeout(ctx context.Context, config Config) (context.Context, context.CancelFunc) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
